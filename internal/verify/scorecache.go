package verify

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmscope/license-verify/internal/model"
)

// ensureScored walks the unscored pairings for a dataset pair, scores them,
// and persists the results with insert-or-ignore semantics. Concurrent
// callers may redundantly compute the same pair; the storage layer keeps
// exactly one row per key. A failure scoring one pair is counted and
// skipped, the batch continues.
//
// Work proceeds in fixed-size chunks so a cancelled batch keeps every
// previously committed chunk.
func (e *Engine) ensureScored(ctx context.Context, ids datasetIDs) (model.ScoreReport, error) {
	log := zap.L().With(
		zap.String("pharmacies_dataset", ids.Pharmacies),
		zap.String("states_dataset", ids.States),
	)

	pairs, err := e.store.ListMissingScores(ctx, ids.Pharmacies, ids.States)
	if err != nil {
		return model.ScoreReport{}, err
	}
	if len(pairs) == 0 {
		return model.ScoreReport{}, nil
	}
	log.Info("scoring unscored pairings", zap.Int("pairs", len(pairs)))

	chunkSize := e.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}
	concurrency := e.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var report model.ScoreReport
	for start := 0; start < len(pairs); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "verify: scoring cancelled")
		}

		end := start + chunkSize
		if end > len(pairs) {
			end = len(pairs)
		}

		scored, failed := e.scoreChunk(ctx, ids, pairs[start:end], concurrency, log)
		report.Errors += failed

		if len(scored) > 0 {
			if _, err := e.store.InsertMatchScores(ctx, scored); err != nil {
				return report, err
			}
			report.Computed += len(scored)
		}
	}

	log.Info("scoring complete", zap.Int("computed", report.Computed), zap.Int("errors", report.Errors))
	return report, nil
}

// scoreChunk scores one chunk of pairings concurrently. Per-pair errors are
// logged and counted, never returned.
func (e *Engine) scoreChunk(ctx context.Context, ids datasetIDs, chunk []model.ScorePair, concurrency int, log *zap.Logger) ([]model.MatchScore, int) {
	var (
		mu     sync.Mutex
		scored []model.MatchScore
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, pair := range chunk {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			sc, err := e.scorer.Score(pair.Reference, pair.Candidate)
			if err != nil {
				log.Warn("scoring failed for pairing",
					zap.String("pharmacy_id", pair.PharmacyID),
					zap.String("result_id", pair.ResultID),
					zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil // don't fail the group
			}

			mu.Lock()
			scored = append(scored, model.MatchScore{
				PharmacyID:          pair.PharmacyID,
				ResultID:            pair.ResultID,
				PharmaciesDatasetID: ids.Pharmacies,
				StatesDatasetID:     ids.States,
				Overall:             sc.Overall,
				Street:              sc.Street,
				CityStateZip:        sc.CityStateZip,
			})
			mu.Unlock()
			return nil
		})
	}

	// The only group error is context cancellation from the limiter; the
	// chunk loop surfaces it on the next ctx check.
	_ = g.Wait()

	return scored, failed
}
