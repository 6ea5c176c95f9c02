package validation

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/extraction"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/shopspring/decimal"
)

// SourceReader lists the transactions actually printed in a document.
// Its output is the ground truth the candidates are reconciled against.
type SourceReader interface {
	ReadSource(ctx context.Context, doc document.Document) ([]domain.Transaction, error)
}

// TextLedgerReader parses plain-text statements line by line. A transaction
// line starts with a date and ends with a signed amount, optionally followed
// by a running balance; everything between is the memo. Other lines
// (headers, balances, blank lines) are skipped.
type TextLedgerReader struct{}

// Date layouts recognised at the start of a line, by token count.
var (
	singleTokenLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02.01.2006"}
	threeTokenLayouts  = []string{"2 Jan 2006", "02 Jan 2006", "2 January 2006"}
)

var amountCleaner = strings.NewReplacer(",", "", "£", "", "$", "", "€", "")

var balanceLine = regexp.MustCompile(`(?i)\b(opening|closing|brought forward|carried forward)\b.*\bbalance\b|\bbalance\b.*\b(brought|carried) forward\b`)

// ReadSource implements SourceReader.
func (TextLedgerReader) ReadSource(ctx context.Context, doc document.Document) ([]domain.Transaction, error) {
	text, err := doc.Text()
	if err != nil {
		return nil, fmt.Errorf("ReadSource: %w: %v", domain.ErrUnreadableDocument, err)
	}
	return ParseLedgerText(text), nil
}

// ParseLedgerText extracts transactions from statement text in line order.
func ParseLedgerText(text string) []domain.Transaction {
	var out []domain.Transaction

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if tx, ok := parseLedgerLine(sc.Text()); ok {
			out = append(out, tx)
		}
	}

	return out
}

func parseLedgerLine(line string) (domain.Transaction, bool) {
	if balanceLine.MatchString(line) {
		return domain.Transaction{}, false
	}

	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return domain.Transaction{}, false
	}

	date, used, ok := parseLeadingDate(tokens)
	if !ok || len(tokens) < used+2 {
		return domain.Transaction{}, false
	}

	end := len(tokens) - 1
	amount, ok := parseAmount(tokens[end])
	if !ok {
		return domain.Transaction{}, false
	}
	// Date | Description | Amount | Balance: the last column is the balance.
	if end-1 > used {
		if prev, ok := parseAmount(tokens[end-1]); ok {
			amount = prev
			end--
		}
	}

	memo := strings.Join(tokens[used:end], " ")
	tx, err := domain.NewTransaction(date, memo, amount)
	if err != nil {
		return domain.Transaction{}, false
	}
	return tx, true
}

func parseLeadingDate(tokens []string) (civil.Date, int, bool) {
	for _, layout := range singleTokenLayouts {
		if t, err := time.Parse(layout, tokens[0]); err == nil {
			return civil.DateOf(t), 1, true
		}
	}
	if len(tokens) >= 3 {
		joined := strings.Join(tokens[:3], " ")
		for _, layout := range threeTokenLayouts {
			if t, err := time.Parse(layout, joined); err == nil {
				return civil.DateOf(t), 3, true
			}
		}
	}
	return civil.Date{}, 0, false
}

// parseAmount accepts "-12.50", "1,234.00", "£12.50", "(12.50)",
// "12.50-", "12.50DR" and "12.50CR". A decimal point is required so that
// reference numbers and years are never read as amounts.
func parseAmount(tok string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(tok)
	negative := false

	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		negative = true
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "CR"):
		s = s[:len(s)-2]
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}

	s = amountCleaner.Replace(s)
	if s == "" || !strings.ContainsAny(s, "0123456789") || !strings.Contains(s, ".") {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

const sourcePrompt = "You are auditing a bank statement.\n\n" +
	"List EVERY transaction printed in the statement, in the order printed, copying each value exactly.\n" +
	"Do not include balances, totals, or headers.\n\n" +
	"Each object must have these fields:\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"memo\": string, the description exactly as printed\n" +
	"- \"amount\": number (positive for money IN, negative for money OUT)\n\n" +
	"Output a JSON array only.\n"

// GeminiSourceReader asks a model to list the ledger of a document. Used for
// PDFs and other documents TextLedgerReader cannot read.
type GeminiSourceReader struct {
	gen llm.Generator
}

// NewGeminiSourceReader creates a new instance of GeminiSourceReader.
func NewGeminiSourceReader(gen llm.Generator) *GeminiSourceReader {
	return &GeminiSourceReader{gen: gen}
}

// ReadSource implements SourceReader.
func (r *GeminiSourceReader) ReadSource(ctx context.Context, doc document.Document) ([]domain.Transaction, error) {
	req, err := extraction.BuildRequest(doc, nil)
	if err != nil {
		return nil, fmt.Errorf("ReadSource: %w", err)
	}
	// Replace the extraction instructions, keep the document payload.
	if req.Attachment == nil {
		text, err := doc.Text()
		if err != nil {
			return nil, fmt.Errorf("ReadSource: %w: %v", domain.ErrUnreadableDocument, err)
		}
		req.Prompt = sourcePrompt + "\nStatement:\n<<<\n" + text + "\n>>>\n"
	} else {
		req.Prompt = sourcePrompt
	}
	req.Schema = llm.TransactionListSchema()

	resp, err := r.gen.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ReadSource: %w", err)
	}

	txs, err := domain.ParseTransactions([]byte(llm.CleanJSON(resp.Text)))
	if err != nil {
		return nil, fmt.Errorf("ReadSource: %w: %v", domain.ErrMalformedOutput, err)
	}
	return txs, nil
}

// AutoReader reads text documents deterministically and falls back to the
// model for everything else, or when the text parser finds nothing.
type AutoReader struct {
	Text  TextLedgerReader
	Model SourceReader
}

// ReadSource implements SourceReader.
func (r AutoReader) ReadSource(ctx context.Context, doc document.Document) ([]domain.Transaction, error) {
	if doc.IsText() {
		txs, err := r.Text.ReadSource(ctx, doc)
		if err == nil && len(txs) > 0 {
			return txs, nil
		}
		if r.Model == nil {
			return txs, err
		}
	}
	if r.Model == nil {
		return nil, fmt.Errorf("ReadSource: %w: no reader for %s", domain.ErrUnreadableDocument, doc.MIMEType)
	}
	return r.Model.ReadSource(ctx, doc)
}
