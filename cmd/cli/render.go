package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dvloznov/statement-extractor/internal/domain"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D29922"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func statusStyle(status pipeline.Status) lipgloss.Style {
	switch status {
	case pipeline.StatusSuccess:
		return okStyle
	case pipeline.StatusExhausted:
		return warnStyle
	default:
		return errStyle
	}
}

// renderOutcome renders one document's outcome: a header line, the final
// transactions with their net amount, and the last findings when the run did
// not validate.
func renderOutcome(name string, out pipeline.Outcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s  %s\n",
		titleStyle.Render(name),
		statusStyle(out.Status).Render(string(out.Status)),
		mutedStyle.Render(fmt.Sprintf("attempt %d", out.Attempt)),
	)

	if out.Status == pipeline.StatusFatal {
		fmt.Fprintf(&b, "%s\n", errStyle.Render(out.Error))
		return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
	}

	b.WriteString(renderTransactions(out.Transactions))
	fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("net"), out.NetAmount().StringFixed(2))

	if !out.Succeeded() && len(out.History) > 0 {
		last := out.History[len(out.History)-1]
		b.WriteString(warnStyle.Render("unresolved findings") + "\n")
		for _, is := range last.Verdict.Issues {
			fmt.Fprintf(&b, "  - %s\n", is)
		}
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderTransactions(txs []domain.Transaction) string {
	if len(txs) == 0 {
		return mutedStyle.Render("no transactions") + "\n"
	}

	width := 0
	for _, tx := range txs {
		width = max(width, len(tx.Memo))
	}

	var b strings.Builder
	for i, tx := range txs {
		fmt.Fprintf(&b, "%3d. %s  %-*s  %12s\n", i+1, tx.Date, width, tx.Memo, tx.Amount.StringFixed(2))
	}
	return b.String()
}

func renderVerdict(v domain.Verdict) string {
	if v.Passed {
		return okStyle.Render("format ok")
	}

	var b strings.Builder
	b.WriteString(errStyle.Render(fmt.Sprintf("%d issue(s)", len(v.Issues))))
	for _, is := range v.Issues {
		fmt.Fprintf(&b, "\n  - %s", is)
	}
	return b.String()
}

func renderStats(st pipeline.Stats) string {
	timeout := st.StageTimeout
	if timeout == "" {
		timeout = "none"
	}
	return mutedStyle.Render(fmt.Sprintf(
		"max attempts %d | history %t | stage timeout %s | extractor %s | validator %s",
		st.MaxAttempts, st.HistoryRetained, timeout, st.Extractor, st.Validator,
	))
}

// renderSummary renders the totals line printed after a multi-document run.
func renderSummary(outcomes []pipeline.Outcome) string {
	counts := map[pipeline.Status]int{}
	for _, out := range outcomes {
		counts[out.Status]++
	}
	return fmt.Sprintf("%d document(s): %s %s %s",
		len(outcomes),
		okStyle.Render(fmt.Sprintf("%d success", counts[pipeline.StatusSuccess])),
		warnStyle.Render(fmt.Sprintf("%d exhausted", counts[pipeline.StatusExhausted])),
		errStyle.Render(fmt.Sprintf("%d fatal", counts[pipeline.StatusFatal])),
	)
}

func renderRuns(runs []*infraBQ.RunRow) string {
	if len(runs) == 0 {
		return mutedStyle.Render("no runs recorded")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%-36s  %-20s  %-11s  %7s  %5s  %12s", "RUN", "FINISHED", "STATUS", "ATTEMPT", "TXNS", "NET")))
	for _, r := range runs {
		net := "-"
		if r.NetAmount != nil {
			net = r.NetAmount.FloatString(2)
		}
		fmt.Fprintf(&b, "\n%-36s  %-20s  %s  %7s  %5d  %12s  %s",
			r.RunID,
			r.FinishedTS.Format("2006-01-02 15:04:05"),
			statusStyle(pipeline.Status(r.Status)).Render(fmt.Sprintf("%-11s", r.Status)),
			fmt.Sprintf("%d/%d", r.Attempt, r.MaxAttempts),
			r.TransactionCount,
			net,
			r.DocumentName,
		)
	}
	return b.String()
}

func renderRunTransactions(rows []*infraBQ.TransactionRow) string {
	if len(rows) == 0 {
		return mutedStyle.Render("no transactions stored for this run")
	}

	var b strings.Builder
	for _, r := range rows {
		amount := "-"
		if r.Amount != nil {
			amount = r.Amount.FloatString(2)
		}
		mark := okStyle.Render("✓")
		if !r.Validated {
			mark = warnStyle.Render("?")
		}
		fmt.Fprintf(&b, "%3d. %s  %s  %12s  %s\n", r.LineNo, r.TransactionDate, mark, amount, r.Memo)
	}
	return strings.TrimRight(b.String(), "\n")
}
