package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-extractor/internal/app"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/gcs"
	"github.com/dvloznov/statement-extractor/internal/notionsync"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/dvloznov/statement-extractor/internal/report"
	"github.com/spf13/cobra"
)

var errNotValidated = errors.New("not every document validated")

type extractOptions struct {
	jsonOut      bool
	xlsxPath     string
	notion       bool
	notionDryRun bool
	record       bool
	concurrency  int
	timeout      time.Duration
}

func newExtractCmd(env *cliEnv) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <file|gs://uri>...",
		Short: "Extract and validate the transactions of one or more statements",
		Long: `extract runs the extract/validate/retry loop for every given statement.
Local paths and gs:// URIs may be mixed. Documents are processed concurrently.

The command exits non-zero when any document ends exhausted or fatal.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), env, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.jsonOut, "json", false, "Print outcomes as JSON on stdout")
	f.StringVar(&opts.xlsxPath, "xlsx", "", "Write an XLSX report to this path")
	f.BoolVar(&opts.notion, "notion", false, "Export validated transactions to the configured Notion database")
	f.BoolVar(&opts.notionDryRun, "notion-dry-run", false, "Report what the Notion export would do without writing")
	f.BoolVar(&opts.record, "record", false, "Record outcomes in BigQuery (requires bigquery.enabled)")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Documents processed at once (default from config)")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall deadline for the command")
	return cmd
}

func runExtract(ctx context.Context, env *cliEnv, opts *extractOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(env.context(ctx), opts.timeout)
	defer cancel()
	log := env.log

	var storage gcs.StorageService
	for _, a := range args {
		if gcs.IsURI(a) {
			s, err := gcs.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			storage = s
			break
		}
	}

	loader := document.NewLoader(storage)
	docs := make([]document.Document, 0, len(args))
	for _, a := range args {
		doc, err := loader.Load(ctx, a)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	ctrl, err := app.NewController(ctx, env.cfg)
	if err != nil {
		return err
	}
	if env.verbose {
		fmt.Fprintln(os.Stderr, renderStats(ctrl.Stats()))
	}

	limit := opts.concurrency
	if limit <= 0 {
		limit = env.cfg.Pipeline.Concurrency
	}

	log.Info().Int("documents", len(docs)).Int("concurrency", limit).Msg("Starting extraction")

	outcomes, err := pipeline.RunAll(ctx, ctrl, docs, limit)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	runIDs := make([]string, len(docs))
	if opts.record {
		repo, err := app.OpenRunRepository(ctx, env.cfg)
		if err != nil {
			return err
		}
		if repo == nil {
			return errors.New("extract: --record requires bigquery.enabled")
		}
		defer repo.Close()

		for i, doc := range docs {
			runID, err := repo.RecordOutcome(ctx, doc, outcomes[i])
			if err != nil {
				return fmt.Errorf("extract: recording %s: %w", doc.Name, err)
			}
			runIDs[i] = runID
		}
	}

	if opts.notion || opts.notionDryRun {
		if err := exportToNotion(ctx, env, docs, outcomes, runIDs, opts.notionDryRun); err != nil {
			return err
		}
	}

	if opts.xlsxPath != "" {
		if err := writeReport(opts.xlsxPath, docs, outcomes); err != nil {
			return err
		}
		log.Info().Str("path", opts.xlsxPath).Msg("Report written")
	}

	if err := printOutcomes(docs, outcomes, runIDs, opts.jsonOut); err != nil {
		return err
	}

	for _, out := range outcomes {
		if !out.Succeeded() {
			return errNotValidated
		}
	}
	return nil
}

type outcomeJSON struct {
	Document string           `json:"document"`
	RunID    string           `json:"run_id,omitempty"`
	Outcome  pipeline.Outcome `json:"outcome"`
}

func printOutcomes(docs []document.Document, outcomes []pipeline.Outcome, runIDs []string, asJSON bool) error {
	if asJSON {
		out := make([]outcomeJSON, len(docs))
		for i, doc := range docs {
			out[i] = outcomeJSON{Document: doc.Name, RunID: runIDs[i], Outcome: outcomes[i]}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i, doc := range docs {
		fmt.Println(renderOutcome(doc.Name, outcomes[i]))
	}
	if len(docs) > 1 {
		fmt.Println(renderSummary(outcomes))
	}
	return nil
}

func exportToNotion(ctx context.Context, env *cliEnv, docs []document.Document, outcomes []pipeline.Outcome, runIDs []string, dryRun bool) error {
	nc := env.cfg.Notion
	if nc.Token == "" || nc.DatabaseID == "" {
		return errors.New("extract: Notion export requires NOTION_TOKEN and NOTION_DB_ID")
	}

	exp := notionsync.NewExporter(notionsync.NewNotionClient(nc.Token), nc.DatabaseID)
	for i, doc := range docs {
		if !outcomes[i].Succeeded() {
			env.log.Warn().Str("document", doc.Name).Str("status", string(outcomes[i].Status)).Msg("Skipping Notion export of unvalidated document")
			continue
		}
		res, err := exp.ExportOutcome(ctx, doc, outcomes[i], runIDs[i], dryRun)
		if err != nil {
			return fmt.Errorf("extract: Notion export of %s: %w", doc.Name, err)
		}
		env.log.Info().
			Str("document", doc.Name).
			Int("created", res.Created).
			Int("skipped", res.Skipped).
			Int("deleted", res.Deleted).
			Bool("dry_run", dryRun).
			Msg("Notion export finished")
	}
	return nil
}

func writeReport(path string, docs []document.Document, outcomes []pipeline.Outcome) error {
	entries := make([]report.Entry, len(docs))
	for i, doc := range docs {
		entries[i] = report.Entry{DocumentName: doc.Name, Outcome: outcomes[i]}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writeReport: %w", err)
	}
	if err := report.WriteXLSX(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
