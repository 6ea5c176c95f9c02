package main

import (
	"context"
	"os"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cliEnv is loaded once before any subcommand runs.
type cliEnv struct {
	cfgFile string
	verbose bool

	cfg config.Config
	log zerolog.Logger
}

func (e *cliEnv) load() error {
	cfg, err := config.Load(e.cfgFile)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if e.verbose {
		level = "debug"
	}
	log, err := logger.NewWithConfig(level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.log = log
	return nil
}

// context returns ctx carrying the CLI logger.
func (e *cliEnv) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, e.log)
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{}

	root := &cobra.Command{
		Use:   "statements",
		Short: "Extract and validate bank statement transactions",
		Long: `statements extracts transactions from bank statements with a model,
checks every extraction against the statement itself and retries with the
findings as feedback until the extraction validates or the attempt budget
runs out.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load()
		},
	}

	root.PersistentFlags().StringVar(&env.cfgFile, "config", os.Getenv("STATEMENT_CONFIG"), "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "Debug logging and controller stats")

	root.AddCommand(
		newExtractCmd(env),
		newCheckCmd(env),
		newUploadCmd(env),
		newInspectCmd(env),
		newMigrateCmd(env),
	)
	return root
}
