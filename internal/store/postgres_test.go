package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmscope/license-verify/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_ResolveDataset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM datasets WHERE kind = \$1 AND tag = \$2`).
		WithArgs("pharmacies", "2026-08-01").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("ds-pharm-1"))

	id, err := s.ResolveDataset(context.Background(), model.DatasetPharmacies, "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, "ds-pharm-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveDataset_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id FROM datasets`).
		WithArgs("states", "missing-tag").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.ResolveDataset(context.Background(), model.DatasetStates, "missing-tag")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDataset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO datasets`).
		WithArgs(pgxmock.AnyArg(), "pharmacies", "2026-08-01", pgxmock.AnyArg(), "ops", "august import").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ds, err := s.CreateDataset(context.Background(), model.DatasetPharmacies, "2026-08-01", "ops", "august import")
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, model.DatasetPharmacies, ds.Kind)
	assert.Equal(t, "2026-08-01", ds.Tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDataset_Duplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO datasets`).
		WithArgs(pgxmock.AnyArg(), "states", "2026-08-01", pgxmock.AnyArg(), "", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateDataset(context.Background(), model.DatasetStates, "2026-08-01", "", "")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDataset_UnknownKind(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.CreateDataset(context.Background(), model.DatasetKind("bogus"), "tag", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset kind")
}

func TestPostgresStore_DeleteDataset_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM datasets`).
		WithArgs("validated", "gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteDataset(context.Background(), model.DatasetValidated, "gone")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDatasetNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertOverride_Conflict(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	// An empty override carrying a license number never reaches the pool.
	license := "PH-1234"
	err := s.InsertOverride(context.Background(), model.ValidatedOverride{
		DatasetID:     "ds-val-1",
		PharmacyName:  "Test Pharmacy A",
		StateCode:     "TX",
		LicenseNumber: &license,
		Type:          model.OverrideEmpty,
		ValidatedAt:   time.Now(),
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOverrideConflict))
}

func TestPostgresStore_ListMissingScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"p_id", "r_id",
		"p_address", "p_city", "p_state", "p_zip",
		"r_address", "r_city", "r_state", "r_zip",
	}).AddRow(
		"pharm-1", "res-1",
		"123 Main St", "Austin", "TX", "78701",
		"123 Main Street", "Austin", "TX", "78701",
	)

	mock.ExpectQuery(`NOT EXISTS`).
		WithArgs("ds-pharm-1", "ds-states-1").
		WillReturnRows(rows)

	pairs, err := s.ListMissingScores(context.Background(), "ds-pharm-1", "ds-states-1")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "pharm-1", pairs[0].PharmacyID)
	assert.Equal(t, "res-1", pairs[0].ResultID)
	assert.Equal(t, "123 Main St", pairs[0].Reference.Street)
	assert.Equal(t, "123 Main Street", pairs[0].Candidate.Street)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertMatchScores_InsertOrIgnore(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"pharmacy_id", "result_id", "pharmacies_dataset_id", "states_dataset_id",
		"score_overall", "score_street", "score_city_state_zip", "created_at"}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_match_scores"}, cols).
		WillReturnResult(1)
	mock.ExpectExec(`ON CONFLICT .* DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.InsertMatchScores(context.Background(), []model.MatchScore{{
		PharmacyID:          "pharm-1",
		ResultID:            "res-1",
		PharmaciesDatasetID: "ds-pharm-1",
		StatesDatasetID:     "ds-states-1",
		Overall:             96.5,
		Street:              98.0,
		CityStateZip:        93.0,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertMatchScores_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.InsertMatchScores(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadMatchScores(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"pharmacy_id", "result_id", "pharmacies_dataset_id", "states_dataset_id",
		"score_overall", "score_street", "score_city_state_zip", "created_at",
	}).AddRow("pharm-1", "res-1", "ds-pharm-1", "ds-states-1", 96.5, 98.0, 93.0, now)

	mock.ExpectQuery(`FROM match_scores`).
		WithArgs("ds-pharm-1", "ds-states-1").
		WillReturnRows(rows)

	scores, err := s.LoadMatchScores(context.Background(), "ds-pharm-1", "ds-states-1")
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 96.5, scores[0].Overall, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
