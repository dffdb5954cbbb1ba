// Package verify implements the license verification core: lazy address
// scoring over immutable dataset snapshots, override merging, status
// classification, consistency checks, and the two result views.
package verify

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/pharmscope/license-verify/internal/address"
	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/model"
	"github.com/pharmscope/license-verify/internal/store"
)

// Engine runs verification requests against a Store. Stateless between
// requests; all per-request data lives in a Snapshot.
type Engine struct {
	store      store.Store
	scorer     *address.Scorer
	classifier Classifier
	cfg        config.ScoringConfig
	limiter    *rate.Limiter
}

// New creates an Engine. A PairsPerSecond of zero disables scoring throttling.
func New(st store.Store, scoring config.ScoringConfig, classify config.ClassifyConfig) *Engine {
	e := &Engine{
		store:      st,
		scorer:     address.NewScorer(scoring),
		classifier: NewClassifier(classify),
		cfg:        scoring,
	}
	if scoring.PairsPerSecond > 0 {
		burst := int(scoring.PairsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(scoring.PairsPerSecond), burst)
	}
	return e
}

// datasetIDs holds the resolved ids for one request triple. Validated is
// empty when the caller passed no validated tag.
type datasetIDs struct {
	Pharmacies string
	States     string
	Validated  string
}

// resolveTriple resolves all tags up front so an unknown tag fails the
// request before any scoring work. An empty validated tag means "no
// overrides"; a non-empty tag that does not resolve is an error.
func (e *Engine) resolveTriple(ctx context.Context, triple model.DatasetTriple) (datasetIDs, error) {
	var ids datasetIDs
	var err error

	if ids.Pharmacies, err = e.store.ResolveDataset(ctx, model.DatasetPharmacies, triple.PharmaciesTag); err != nil {
		return ids, err
	}
	if ids.States, err = e.store.ResolveDataset(ctx, model.DatasetStates, triple.StatesTag); err != nil {
		return ids, err
	}
	if triple.ValidatedTag != "" {
		if ids.Validated, err = e.store.ResolveDataset(ctx, model.DatasetValidated, triple.ValidatedTag); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// ListMissingScores reports the (pharmacy, result) pairings that have no
// cached score yet for the given dataset pair.
func (e *Engine) ListMissingScores(ctx context.Context, pharmaciesTag, statesTag string) ([]model.ScorePair, error) {
	ids, err := e.resolveTriple(ctx, model.DatasetTriple{PharmaciesTag: pharmaciesTag, StatesTag: statesTag})
	if err != nil {
		return nil, err
	}
	return e.store.ListMissingScores(ctx, ids.Pharmacies, ids.States)
}

// EnsureScored computes and caches scores for every unscored pairing of the
// dataset pair. Safe to call concurrently; see ensureScored.
func (e *Engine) EnsureScored(ctx context.Context, pharmaciesTag, statesTag string) (model.ScoreReport, error) {
	ids, err := e.resolveTriple(ctx, model.DatasetTriple{PharmaciesTag: pharmaciesTag, StatesTag: statesTag})
	if err != nil {
		return model.ScoreReport{}, err
	}
	return e.ensureScored(ctx, ids)
}

// Comprehensive returns the flat per-result view, scoring any missing pairs
// first.
func (e *Engine) Comprehensive(ctx context.Context, triple model.DatasetTriple) ([]model.ComprehensiveRow, error) {
	ids, err := e.resolveTriple(ctx, triple)
	if err != nil {
		return nil, err
	}
	if _, err := e.ensureScored(ctx, ids); err != nil {
		return nil, err
	}
	snap, err := e.loadSnapshot(ctx, ids)
	if err != nil {
		return nil, err
	}
	return buildComprehensive(snap, e.classifier), nil
}

// Matrix returns the aggregated per-pair view with warnings and summary
// counts, scoring any missing pairs first.
func (e *Engine) Matrix(ctx context.Context, triple model.DatasetTriple) (*model.Matrix, error) {
	ids, err := e.resolveTriple(ctx, triple)
	if err != nil {
		return nil, err
	}
	if _, err := e.ensureScored(ctx, ids); err != nil {
		return nil, err
	}
	snap, err := e.loadSnapshot(ctx, ids)
	if err != nil {
		return nil, err
	}
	return buildMatrix(snap, e.classifier), nil
}

// CheckConsistency runs the override consistency checks alone, without
// triggering scoring. Findings are returned as data, never as an error.
func (e *Engine) CheckConsistency(ctx context.Context, triple model.DatasetTriple) ([]model.Warning, error) {
	ids, err := e.resolveTriple(ctx, triple)
	if err != nil {
		return nil, err
	}
	snap, err := e.loadSnapshot(ctx, ids)
	if err != nil {
		return nil, err
	}
	return detectWarnings(snap), nil
}
