package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pharmscope/license-verify/internal/model"
)

// ErrDatasetNotFound is returned when a (kind, tag) pair does not resolve.
// An unresolvable required tag is fatal to the whole request.
var ErrDatasetNotFound = eris.New("dataset not found")

// ErrDatasetExists is returned when creating a dataset whose (kind, tag)
// already exists; tags are immutable once created.
var ErrDatasetExists = eris.New("dataset already exists")

// ErrOverrideConflict is returned when an override violates the
// license-number rule for its type. Rejected at write time.
var ErrOverrideConflict = eris.New("override conflict")

// Store defines the persistence interface for the verification engine. The
// engine only ever writes match_scores; the three dataset tables are written
// by the import side and read here as immutable snapshots.
type Store interface {
	// Dataset registry
	ResolveDataset(ctx context.Context, kind model.DatasetKind, tag string) (string, error)
	CreateDataset(ctx context.Context, kind model.DatasetKind, tag, createdBy, description string) (*model.Dataset, error)
	ListDatasets(ctx context.Context, kind model.DatasetKind) ([]model.Dataset, error)
	// DeleteDataset is the explicit administrative reset: it removes the
	// dataset, its rows, and every match score keyed to it.
	DeleteDataset(ctx context.Context, kind model.DatasetKind, tag string) error

	// Import-side writes
	InsertPharmacies(ctx context.Context, datasetID string, rows []model.Pharmacy) (int64, error)
	InsertSearchResults(ctx context.Context, datasetID string, rows []model.SearchResult) (int64, error)
	InsertOverride(ctx context.Context, o model.ValidatedOverride) error

	// Dataset-scoped snapshot loads
	LoadPharmacies(ctx context.Context, datasetID string) ([]model.Pharmacy, error)
	LoadSearchResults(ctx context.Context, datasetID string) ([]model.SearchResult, error)
	LoadOverrides(ctx context.Context, datasetID string) ([]model.ValidatedOverride, error)

	// Score cache
	ListMissingScores(ctx context.Context, pharmaciesID, statesID string) ([]model.ScorePair, error)
	// InsertMatchScores persists computed scores with insert-or-ignore
	// semantics on the composite key and returns the number actually
	// inserted. Safe under concurrent callers.
	InsertMatchScores(ctx context.Context, scores []model.MatchScore) (int64, error)
	LoadMatchScores(ctx context.Context, pharmaciesID, statesID string) ([]model.MatchScore, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
