package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmscope/license-verify/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func strptr(s string) *string { return &s }

// --- Dataset registry ---

func TestSQLite_Datasets_CreateResolveList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ds, err := st.CreateDataset(ctx, model.DatasetPharmacies, "2026-08-01", "ops", "august import")
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)

	id, err := st.ResolveDataset(ctx, model.DatasetPharmacies, "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, ds.ID, id)

	// Same tag under a different kind is a distinct dataset.
	_, err = st.CreateDataset(ctx, model.DatasetStates, "2026-08-01", "ops", "")
	require.NoError(t, err)

	all, err := st.ListDatasets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pharmaciesOnly, err := st.ListDatasets(ctx, model.DatasetPharmacies)
	require.NoError(t, err)
	require.Len(t, pharmaciesOnly, 1)
	assert.Equal(t, ds.ID, pharmaciesOnly[0].ID)
}

func TestSQLite_Datasets_DuplicateTag(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateDataset(ctx, model.DatasetStates, "2026-08-01", "", "")
	require.NoError(t, err)

	_, err = st.CreateDataset(ctx, model.DatasetStates, "2026-08-01", "", "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetExists))
}

func TestSQLite_Datasets_ResolveNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.ResolveDataset(context.Background(), model.DatasetValidated, "never-created")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetNotFound))
}

func TestSQLite_Datasets_DeleteCascades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	pharmDS, err := st.CreateDataset(ctx, model.DatasetPharmacies, "del-me", "", "")
	require.NoError(t, err)
	statesDS, err := st.CreateDataset(ctx, model.DatasetStates, "keep", "", "")
	require.NoError(t, err)

	_, err = st.InsertPharmacies(ctx, pharmDS.ID, []model.Pharmacy{
		{ID: "pharm-1", Name: "Test Pharmacy A", ClaimedLicenses: []string{"TX"}},
	})
	require.NoError(t, err)

	_, err = st.InsertMatchScores(ctx, []model.MatchScore{{
		PharmacyID: "pharm-1", ResultID: "res-1",
		PharmaciesDatasetID: pharmDS.ID, StatesDatasetID: statesDS.ID,
		Overall: 90, Street: 95, CityStateZip: 80,
	}})
	require.NoError(t, err)

	require.NoError(t, st.DeleteDataset(ctx, model.DatasetPharmacies, "del-me"))

	pharmacies, err := st.LoadPharmacies(ctx, pharmDS.ID)
	require.NoError(t, err)
	assert.Empty(t, pharmacies)

	scores, err := st.LoadMatchScores(ctx, pharmDS.ID, statesDS.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	err = st.DeleteDataset(ctx, model.DatasetPharmacies, "del-me")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetNotFound))
}

// --- Import and snapshot loads ---

func TestSQLite_Pharmacies_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ds, err := st.CreateDataset(ctx, model.DatasetPharmacies, "rt", "", "")
	require.NoError(t, err)

	n, err := st.InsertPharmacies(ctx, ds.ID, []model.Pharmacy{
		{Name: "Test Pharmacy A", Address: "123 Main St", City: "Austin", State: "TX", Zip: "78701",
			ClaimedLicenses: []string{"TX", "FL"}},
		{Name: "Test Pharmacy B", ClaimedLicenses: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	pharmacies, err := st.LoadPharmacies(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, pharmacies, 2)
	assert.Equal(t, "Test Pharmacy A", pharmacies[0].Name)
	assert.Equal(t, []string{"TX", "FL"}, pharmacies[0].ClaimedLicenses)
	assert.NotEmpty(t, pharmacies[0].ID)
	assert.Empty(t, pharmacies[1].ClaimedLicenses)
}

func TestSQLite_SearchResults_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ds, err := st.CreateDataset(ctx, model.DatasetStates, "rt", "", "")
	require.NoError(t, err)

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	n, err := st.InsertSearchResults(ctx, ds.ID, []model.SearchResult{
		{SearchName: "Test Pharmacy A", SearchState: "TX", LicenseNumber: strptr("TX-100"),
			LicenseStatus: "Active", Address: "123 Main Street", City: "Austin", State: "TX", Zip: "78701",
			ResultStatus: model.ResultsFound, SearchTimestamp: older},
		{SearchName: "Test Pharmacy A", SearchState: "TX", LicenseNumber: strptr("TX-101"),
			LicenseStatus: "Active", ResultStatus: model.ResultsFound, SearchTimestamp: newer},
		{SearchName: "Test Pharmacy B", SearchState: "GA", LicenseNumber: nil,
			ResultStatus: model.NoResultsFound, SearchTimestamp: older},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	results, err := st.LoadSearchResults(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Ordered by name/state with the most recent search first within a pair.
	assert.Equal(t, "TX-101", *results[0].LicenseNumber)
	assert.Equal(t, "TX-100", *results[1].LicenseNumber)
	assert.Nil(t, results[2].LicenseNumber)
	assert.Equal(t, model.NoResultsFound, results[2].ResultStatus)
	assert.True(t, results[0].SearchTimestamp.Equal(newer))
}

func TestSQLite_Overrides_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ds, err := st.CreateDataset(ctx, model.DatasetValidated, "rt", "", "")
	require.NoError(t, err)

	present := model.ValidatedOverride{
		DatasetID:     ds.ID,
		PharmacyName:  "Test Pharmacy A",
		StateCode:     "TX",
		LicenseNumber: strptr("TX-100"),
		Type:          model.OverridePresent,
		Reason:        "confirmed by phone",
		ValidatedBy:   "reviewer",
		ValidatedAt:   time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		Snapshot: model.OverrideSnapshot{
			LicenseStatus: "Active",
			Address:       "123 Main Street",
		},
	}
	require.NoError(t, st.InsertOverride(ctx, present))

	empty := model.ValidatedOverride{
		DatasetID:    ds.ID,
		PharmacyName: "Test Pharmacy B",
		StateCode:    "GA",
		Type:         model.OverrideEmpty,
		ValidatedAt:  time.Date(2026, 8, 11, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.InsertOverride(ctx, empty))

	overrides, err := st.LoadOverrides(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, model.OverridePresent, overrides[0].Type)
	assert.Equal(t, "TX-100", *overrides[0].LicenseNumber)
	assert.Equal(t, "Active", overrides[0].Snapshot.LicenseStatus)
	assert.Equal(t, model.OverrideEmpty, overrides[1].Type)
	assert.Nil(t, overrides[1].LicenseNumber)
}

func TestSQLite_Overrides_TypeRuleEnforced(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ds, err := st.CreateDataset(ctx, model.DatasetValidated, "rules", "", "")
	require.NoError(t, err)

	// Present without a license number.
	err = st.InsertOverride(ctx, model.ValidatedOverride{
		DatasetID: ds.ID, PharmacyName: "Test Pharmacy A", StateCode: "TX",
		Type: model.OverridePresent, ValidatedAt: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOverrideConflict))

	// Empty carrying a license number.
	err = st.InsertOverride(ctx, model.ValidatedOverride{
		DatasetID: ds.ID, PharmacyName: "Test Pharmacy A", StateCode: "TX",
		LicenseNumber: strptr("TX-100"), Type: model.OverrideEmpty, ValidatedAt: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOverrideConflict))
}

// --- Score cache ---

func seedScoringFixture(t *testing.T, st *SQLiteStore) (pharmDSID, statesDSID string) {
	t.Helper()
	ctx := context.Background()

	pharmDS, err := st.CreateDataset(ctx, model.DatasetPharmacies, "fix", "", "")
	require.NoError(t, err)
	statesDS, err := st.CreateDataset(ctx, model.DatasetStates, "fix", "", "")
	require.NoError(t, err)

	_, err = st.InsertPharmacies(ctx, pharmDS.ID, []model.Pharmacy{
		{ID: "pharm-1", Name: "Test Pharmacy A", Address: "123 Main St", City: "Austin", State: "TX", Zip: "78701",
			ClaimedLicenses: []string{"TX", "FL"}},
	})
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = st.InsertSearchResults(ctx, statesDS.ID, []model.SearchResult{
		{ID: "res-tx", SearchName: "Test Pharmacy A", SearchState: "TX",
			LicenseNumber: strptr("TX-100"), Address: "123 Main Street", City: "Austin", State: "TX", Zip: "78701",
			ResultStatus: model.ResultsFound, SearchTimestamp: ts},
		// No-results rows never become scoring pairs.
		{ID: "res-fl", SearchName: "Test Pharmacy A", SearchState: "FL",
			ResultStatus: model.NoResultsFound, SearchTimestamp: ts},
		// A state the pharmacy does not claim is excluded even with results.
		{ID: "res-ny", SearchName: "Test Pharmacy A", SearchState: "NY",
			LicenseNumber: strptr("NY-1"), ResultStatus: model.ResultsFound, SearchTimestamp: ts},
	})
	require.NoError(t, err)

	return pharmDS.ID, statesDS.ID
}

func TestSQLite_ListMissingScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	pharmDSID, statesDSID := seedScoringFixture(t, st)

	pairs, err := st.ListMissingScores(ctx, pharmDSID, statesDSID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "pharm-1", pairs[0].PharmacyID)
	assert.Equal(t, "res-tx", pairs[0].ResultID)
	assert.Equal(t, "123 Main St", pairs[0].Reference.Street)
	assert.Equal(t, "123 Main Street", pairs[0].Candidate.Street)
}

func TestSQLite_InsertMatchScores_SecondInsertIgnored(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	pharmDSID, statesDSID := seedScoringFixture(t, st)

	score := model.MatchScore{
		PharmacyID: "pharm-1", ResultID: "res-tx",
		PharmaciesDatasetID: pharmDSID, StatesDatasetID: statesDSID,
		Overall: 96.5, Street: 98.0, CityStateZip: 93.0,
	}

	n, err := st.InsertMatchScores(ctx, []model.MatchScore{score})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Re-inserting the same composite key is a no-op, not an error.
	rewrite := score
	rewrite.Overall = 12.3
	n, err = st.InsertMatchScores(ctx, []model.MatchScore{rewrite})
	require.NoError(t, err)
	assert.Zero(t, n)

	scores, err := st.LoadMatchScores(ctx, pharmDSID, statesDSID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 96.5, scores[0].Overall, 0.001)

	// The cache now covers the pair, so discovery returns nothing.
	pairs, err := st.ListMissingScores(ctx, pharmDSID, statesDSID)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestSQLite_MatchScores_KeyedByDatasetPair(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	pharmDSID, statesDSID := seedScoringFixture(t, st)

	otherStates, err := st.CreateDataset(ctx, model.DatasetStates, "other", "", "")
	require.NoError(t, err)

	_, err = st.InsertMatchScores(ctx, []model.MatchScore{{
		PharmacyID: "pharm-1", ResultID: "res-tx",
		PharmaciesDatasetID: pharmDSID, StatesDatasetID: statesDSID,
		Overall: 96.5, Street: 98.0, CityStateZip: 93.0,
	}})
	require.NoError(t, err)

	// A different states dataset is a different cache key space.
	scores, err := st.LoadMatchScores(ctx, pharmDSID, otherStates.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
