package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/statement-extractor/internal/validation"
	"github.com/spf13/cobra"
)

var errFormatCheck = errors.New("payload failed the format check")

func newCheckCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file|-]",
		Short: "Check the format of a transactions JSON payload",
		Long: `check validates a JSON payload of transactions (an array, or an object with a
"transactions" array) without comparing it to any statement. It reads stdin
when no file or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			verdict := validation.CheckFormat(raw)
			env.log.Debug().Bool("passed", verdict.Passed).Int("issues", len(verdict.Issues)).Msg("Format check finished")

			fmt.Fprintln(cmd.OutOrStdout(), renderVerdict(verdict))
			if !verdict.Passed {
				return errFormatCheck
			}
			return nil
		},
	}
}
