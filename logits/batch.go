package logits

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AllowedTokensBatch computes AllowedTokens for each processor concurrently,
// running at most limit at a time when limit is positive. The processors must
// be distinct, for example the clones of a beam.
func AllowedTokensBatch(ctx context.Context, procs []*Processor, limit int) ([][]int, error) {
	out := make([][]int, len(procs))

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range procs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			allowed, err := p.AllowedTokens()
			if err != nil {
				return fmt.Errorf("processor %d: %w", i, err)
			}
			out[i] = allowed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
