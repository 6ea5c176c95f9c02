package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/jomei/notionapi"
)

// ErrNotValidated is returned when exporting an outcome that did not pass validation.
var ErrNotValidated = errors.New("outcome did not pass validation")

// ExportResult counts the page operations of one export.
type ExportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Deleted int `json:"deleted"`
}

// Exporter writes validated transactions to a Notion database, one page per
// transaction.
type Exporter struct {
	client     NotionService
	databaseID string
}

// NewExporter creates an exporter for databaseID.
func NewExporter(client NotionService, databaseID string) *Exporter {
	return &Exporter{client: client, databaseID: databaseID}
}

// ExportOutcome syncs the transactions of a successful outcome. Export is
// idempotent per document: pages already present (same transaction key) are
// skipped, and pages of the same document whose key is no longer produced
// are archived.
func (e *Exporter) ExportOutcome(ctx context.Context, doc document.Document, outcome pipeline.Outcome, runID string, dryRun bool) (ExportResult, error) {
	log := logger.FromContext(ctx)

	if !outcome.Succeeded() {
		return ExportResult{}, fmt.Errorf("ExportOutcome: %s: %w (status %s)", doc.Name, ErrNotValidated, outcome.Status)
	}

	log.Info().
		Str("document", doc.Name).
		Int("transaction_count", len(outcome.Transactions)).
		Bool("dry_run", dryRun).
		Msg("Starting transaction export to Notion")

	checksum := doc.Checksum()
	wanted := make(map[string]bool, len(outcome.Transactions))
	keys := make([]string, len(outcome.Transactions))
	for i, tx := range outcome.Transactions {
		keys[i] = TransactionKey(checksum, i+1, tx)
		wanted[keys[i]] = true
	}

	pages, err := queryAllNotionPages(ctx, e.client, e.databaseID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("ExportOutcome: %w", err)
	}

	var result ExportResult
	existing := make(map[string]bool)
	for _, page := range pages {
		if plainText(page, PropDocument) != doc.Name {
			continue
		}
		key := plainText(page, PropKey)
		if wanted[key] {
			existing[key] = true
			continue
		}

		if dryRun {
			log.Info().Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
			result.Deleted++
			continue
		}
		if err := e.client.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
			continue
		}
		result.Deleted++
	}

	for i, tx := range outcome.Transactions {
		if existing[keys[i]] {
			result.Skipped++
			continue
		}

		if dryRun {
			log.Info().Str("transaction_key", keys[i]).Msg("[DRY RUN] Would create new Notion page")
			result.Created++
			continue
		}

		props := TransactionToNotionProperties(tx, keys[i], doc.Name, runID, i+1)
		page, err := e.client.CreatePage(ctx, e.databaseID, props)
		if err != nil {
			return result, fmt.Errorf("ExportOutcome: creating page for line %d: %w", i+1, err)
		}
		log.Debug().
			Str("transaction_key", keys[i]).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		result.Created++
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("deleted", result.Deleted).
		Msg("Transaction export completed")

	return result, nil
}

// queryAllNotionPages queries all pages from a Notion database, handling pagination.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
