package notionsync

import (
	"fmt"
	"time"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/google/uuid"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropMemo       = "Memo"
	PropDate       = "Date"
	PropAmount     = "Amount"
	PropAmountText = "Amount (exact)"
	PropKey        = "Transaction Key"
	PropDocument   = "Document"
	PropRunID      = "Run ID"
	PropLine       = "Line"
)

// keyNamespace scopes transaction keys so they never collide with other
// name-based UUIDs.
var keyNamespace = uuid.MustParse("6f1c3c4e-8d0a-4c55-9a55-3b1f5e0c2d71")

// TransactionKey identifies a record across exports: the same document
// content, position and values always give the same key.
func TransactionKey(docChecksum string, line int, tx domain.Transaction) string {
	data := fmt.Sprintf("%s|%d|%s", docChecksum, line, tx.String())
	return uuid.NewSHA1(keyNamespace, []byte(data)).String()
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// TransactionToNotionProperties converts a validated transaction to page
// properties. Amount is stored both as a number for Notion formulas and as
// exact text.
func TransactionToNotionProperties(tx domain.Transaction, key, documentName, runID string, line int) notionapi.Properties {
	date := notionapi.Date(time.Date(tx.Date.Year, tx.Date.Month, tx.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropMemo: notionapi.TitleProperty{
			Title: richText(tx.Memo),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropAmountText: notionapi.RichTextProperty{
			RichText: richText(tx.Amount.String()),
		},
		PropKey: notionapi.RichTextProperty{
			RichText: richText(key),
		},
		PropDocument: notionapi.RichTextProperty{
			RichText: richText(documentName),
		},
		PropLine: notionapi.NumberProperty{
			Number: float64(line),
		},
	}

	if runID != "" {
		props[PropRunID] = notionapi.RichTextProperty{
			RichText: richText(runID),
		}
	}

	return props
}

// plainText reads a rich text or title property from a queried page.
// Returns empty string if not found.
func plainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		if len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	case *notionapi.TitleProperty:
		if len(p.Title) > 0 {
			return p.Title[0].PlainText
		}
	}
	return ""
}
