package main

import (
	"errors"
	"fmt"

	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/spf13/cobra"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	var (
		appliedBy string
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending BigQuery schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bq := env.cfg.BigQuery
			out := cmd.OutOrStdout()

			if list {
				migrations, err := infraBQ.LoadMigrations(infraBQ.EmbeddedMigrations(), bq.ProjectID, bq.Dataset)
				if err != nil {
					return err
				}
				for _, m := range migrations {
					fmt.Fprintf(out, "%04d  %-32s  %s\n", m.Version, m.Name, m.Checksum[:12])
				}
				return nil
			}

			if bq.ProjectID == "" {
				return errors.New("migrate: GOOGLE_CLOUD_PROJECT is required")
			}

			ctx := env.context(cmd.Context())
			m, err := infraBQ.NewMigrator(ctx, bq.ProjectID, bq.Dataset, appliedBy)
			if err != nil {
				return err
			}
			defer m.Close()

			env.log.Info().Str("project", bq.ProjectID).Str("dataset", bq.Dataset).Msg("Connected to BigQuery")

			n, err := m.Apply(ctx, infraBQ.EmbeddedMigrations())
			if err != nil {
				return err
			}

			if n == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No pending migrations"))
			} else {
				fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("Applied %d migration(s)", n)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&appliedBy, "applied-by", "statements-cli", "Recorded as the tool applying migrations")
	cmd.Flags().BoolVar(&list, "list", false, "List embedded migrations without connecting")
	return cmd
}
