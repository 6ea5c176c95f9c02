package main

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/dvloznov/statement-extractor/internal/gcs"
	"github.com/spf13/cobra"
)

func newUploadCmd(env *cliEnv) *cobra.Command {
	var bucket, object string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a statement to GCS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			if bucket == "" {
				bucket = env.cfg.GCS.Bucket
			}
			if bucket == "" {
				return errors.New("upload: --bucket or GCS_BUCKET is required")
			}
			if object == "" {
				object = path.Join(env.cfg.GCS.Prefix, filepath.Base(filePath))
			}

			ctx := env.context(cmd.Context())
			storage, err := gcs.NewGCSStorageService(ctx)
			if err != nil {
				return err
			}
			defer storage.Close()

			env.log.Info().
				Str("bucket", bucket).
				Str("object", object).
				Str("file", filePath).
				Msg("Uploading file to GCS")

			if err := storage.UploadFile(ctx, bucket, object, filePath); err != nil {
				return fmt.Errorf("upload: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), gcs.BuildURI(bucket, object))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket name (default from config)")
	cmd.Flags().StringVar(&object, "object", "", "Object name (default <prefix>/<filename>)")
	return cmd
}
