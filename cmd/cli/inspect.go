package main

import (
	"errors"
	"fmt"

	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func newInspectCmd(env *cliEnv) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "List recorded runs, or the stored transactions of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bq := env.cfg.BigQuery
			if bq.ProjectID == "" {
				return errors.New("inspect: GOOGLE_CLOUD_PROJECT is required")
			}

			ctx := env.context(cmd.Context())
			repo, err := infraBQ.NewBigQueryRunRepository(ctx, bq.ProjectID, bq.Dataset, env.cfg.Pipeline.MaxAttempts)
			if err != nil {
				return err
			}
			defer repo.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				runs, err := repo.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderRuns(runs))
				return nil
			}

			rows, err := repo.ListRunTransactions(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, titleStyle.Render("run "+args[0]))
			fmt.Fprintln(out, renderRunTransactions(rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}
