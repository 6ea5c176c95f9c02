package pipeline

import (
	"context"

	"github.com/dvloznov/statement-extractor/internal/document"
	"golang.org/x/sync/errgroup"
)

// RunAll processes docs concurrently, at most limit at a time (limit <= 0
// means no limit). Outcomes are returned in the order of docs. The first
// error returned by a run cancels the remaining ones and is returned.
func RunAll(ctx context.Context, ctrl *Controller, docs []document.Document, limit int) ([]Outcome, error) {
	outcomes := make([]Outcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, doc := range docs {
		g.Go(func() error {
			out, err := ctrl.Run(gctx, doc)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
