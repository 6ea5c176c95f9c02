package extraction

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

const basePrompt = "You are a financial statement parser for bank statements.\n\n" +
	"Task:\n" +
	"- Extract ALL transactions in the statement, in the order they appear.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array of objects.\n\n" +
	"Each object must have these fields:\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"memo\": string, the description exactly as printed\n" +
	"- \"amount\": number (positive for money IN, negative for money OUT)\n\n" +
	"Rules:\n" +
	"- If the statement has separate \"paid out\" / \"paid in\" columns, convert to a single signed \"amount\".\n" +
	"- Do not include opening or closing balances, totals, or running balances as transactions.\n" +
	"- Copy amounts digit for digit; never round.\n" +
	"- Do NOT wrap the response in code fences.\n" +
	"- Output must begin with \"[\" and end with \"]\".\n"

// buildPrompt assembles the instructions for one extraction call.
// docText is empty when the document travels as an attachment.
func buildPrompt(docText string, feedback []domain.Issue) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if len(feedback) > 0 {
		b.WriteString("\n")
		b.WriteString(renderFeedback(feedback))
	}

	if docText != "" {
		b.WriteString("\nStatement:\n<<<\n")
		b.WriteString(docText)
		b.WriteString("\n>>>\n")
	}

	return b.String()
}

// renderFeedback turns the previous verdict's findings into correction instructions.
func renderFeedback(issues []domain.Issue) string {
	var b strings.Builder
	b.WriteString("The previous extraction failed validation with these issues:\n")
	for i, is := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, is.String())
		if is.Expected != nil {
			fmt.Fprintf(&b, "   expected: %s\n", is.Expected.String())
		}
	}
	b.WriteString("\nRe-extract every transaction from scratch and fix each issue above. " +
		"Return the complete corrected list, not only the changed records.\n")
	return b.String()
}
