// Package report renders run outcomes as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetSummary      = "Summary"
	SheetTransactions = "Transactions"
	SheetAttempts     = "Attempts"
)

// amountFormat is the built-in "#,##0.00" number format.
const amountFormat = 4

// Entry is one document's outcome.
type Entry struct {
	DocumentName string
	Outcome      pipeline.Outcome
}

var (
	summaryHeader      = []interface{}{"Document", "Status", "Attempt", "Transactions", "Net Amount", "Error"}
	transactionsHeader = []interface{}{"Document", "Line", "Date", "Memo", "Amount", "Validated"}
	attemptsHeader     = []interface{}{"Document", "Attempt", "Passed", "Records", "Issues", "Detail"}
)

// WriteXLSX writes a workbook with a summary row per entry, every final
// transaction, and the attempt history when present.
func WriteXLSX(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	for _, name := range []string{SheetTransactions, SheetAttempts} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("WriteXLSX: creating sheet %s: %w", name, err)
		}
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	s := &sheetWriter{f: f}
	s.row(SheetSummary, summaryHeader)
	s.row(SheetTransactions, transactionsHeader)
	s.row(SheetAttempts, attemptsHeader)

	for _, e := range entries {
		out := e.Outcome
		s.row(SheetSummary, []interface{}{
			e.DocumentName,
			string(out.Status),
			out.Attempt,
			len(out.Transactions),
			out.NetAmount().InexactFloat64(),
			out.Error,
		})

		for i, tx := range out.Transactions {
			s.row(SheetTransactions, []interface{}{
				e.DocumentName,
				i + 1,
				tx.Date.String(),
				tx.Memo,
				tx.Amount.InexactFloat64(),
				yesNo(out.Succeeded()),
			})
		}

		for _, rec := range out.History {
			details := make([]string, len(rec.Verdict.Issues))
			for i, is := range rec.Verdict.Issues {
				details[i] = is.String()
			}
			s.row(SheetAttempts, []interface{}{
				e.DocumentName,
				rec.Attempt,
				yesNo(rec.Verdict.Passed),
				len(rec.Transactions),
				len(rec.Verdict.Issues),
				strings.Join(details, "\n"),
			})
		}
	}
	if s.err != nil {
		return fmt.Errorf("WriteXLSX: %w", s.err)
	}

	if err := s.style(SheetSummary, "E", amountStyle); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	if err := s.style(SheetTransactions, "E", amountStyle); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: writing workbook: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (s *sheetWriter) row(sheet string, values []interface{}) {
	if s.err != nil {
		return
	}
	if s.next == nil {
		s.next = make(map[string]int)
	}
	s.next[sheet]++
	cell, err := excelize.CoordinatesToCellName(1, s.next[sheet])
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetSheetRow(sheet, cell, &values)
}

func (s *sheetWriter) style(sheet, col string, style int) error {
	last := s.next[sheet]
	if last < 2 {
		return nil
	}
	return s.f.SetCellStyle(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, last), style)
}
