package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pharmscope/license-verify/internal/db"
	"github.com/pharmscope/license-verify/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"resolve_dataset": `SELECT id FROM datasets WHERE kind = $1 AND tag = $2`,
	"load_scores": `SELECT pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id,
		score_overall, score_street, score_city_state_zip, created_at
		FROM match_scores WHERE pharmacies_dataset_id = $1 AND states_dataset_id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind        TEXT NOT NULL,
	tag         TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_by  TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	UNIQUE (kind, tag)
);

CREATE TABLE IF NOT EXISTS pharmacies (
	id               TEXT PRIMARY KEY,
	dataset_id       TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	address          TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	zip              TEXT NOT NULL DEFAULT '',
	claimed_licenses TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS search_results (
	id               TEXT PRIMARY KEY,
	dataset_id       TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	search_name      TEXT NOT NULL,
	search_state     TEXT NOT NULL,
	license_number   TEXT,
	license_status   TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	zip              TEXT NOT NULL DEFAULT '',
	issue_date       TEXT NOT NULL DEFAULT '',
	expiration_date  TEXT NOT NULL DEFAULT '',
	result_status    TEXT NOT NULL,
	search_timestamp TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_scores (
	pharmacy_id           TEXT NOT NULL,
	result_id             TEXT NOT NULL,
	pharmacies_dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	states_dataset_id     TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	score_overall         DOUBLE PRECISION NOT NULL,
	score_street          DOUBLE PRECISION NOT NULL,
	score_city_state_zip  DOUBLE PRECISION NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id)
);

CREATE TABLE IF NOT EXISTS validated_overrides (
	dataset_id     TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	pharmacy_name  TEXT NOT NULL,
	state_code     TEXT NOT NULL,
	license_number TEXT,
	override_type  TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	validated_by   TEXT NOT NULL DEFAULT '',
	validated_at   TIMESTAMPTZ NOT NULL,
	snapshot       JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_pharmacies_dataset ON pharmacies(dataset_id, name);
CREATE INDEX IF NOT EXISTS idx_results_pair ON search_results(dataset_id, search_name, search_state);
CREATE INDEX IF NOT EXISTS idx_scores_datasets ON match_scores(pharmacies_dataset_id, states_dataset_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_overrides_natural_key
	ON validated_overrides(dataset_id, pharmacy_name, state_code, COALESCE(license_number, ''));
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ResolveDataset(ctx context.Context, kind model.DatasetKind, tag string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM datasets WHERE kind = $1 AND tag = $2`,
		string(kind), tag,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", eris.Wrapf(ErrDatasetNotFound, "postgres: %s/%s", kind, tag)
		}
		return "", eris.Wrapf(err, "postgres: resolve dataset %s/%s", kind, tag)
	}
	return id, nil
}

func (s *PostgresStore) CreateDataset(ctx context.Context, kind model.DatasetKind, tag, createdBy, description string) (*model.Dataset, error) {
	if !kind.Valid() {
		return nil, eris.Errorf("postgres: unknown dataset kind %q", kind)
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, kind, tag, created_at, created_by, description) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(kind), tag, now, createdBy, description,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, eris.Wrapf(ErrDatasetExists, "postgres: %s/%s", kind, tag)
		}
		return nil, eris.Wrapf(err, "postgres: create dataset %s/%s", kind, tag)
	}

	return &model.Dataset{
		ID:          id,
		Kind:        kind,
		Tag:         tag,
		CreatedAt:   now,
		CreatedBy:   createdBy,
		Description: description,
	}, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context, kind model.DatasetKind) ([]model.Dataset, error) {
	query := `SELECT id, kind, tag, created_at, created_by, description FROM datasets`
	var args []any
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(kind))
	}
	query += ` ORDER BY kind, created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var datasets []model.Dataset
	for rows.Next() {
		var d model.Dataset
		if err := rows.Scan(&d.ID, &d.Kind, &d.Tag, &d.CreatedAt, &d.CreatedBy, &d.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		datasets = append(datasets, d)
	}
	return datasets, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, kind model.DatasetKind, tag string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM datasets WHERE kind = $1 AND tag = $2`,
		string(kind), tag,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete dataset %s/%s", kind, tag)
	}
	if ct.RowsAffected() == 0 {
		return eris.Wrapf(ErrDatasetNotFound, "postgres: %s/%s", kind, tag)
	}
	return nil
}

func (s *PostgresStore) InsertPharmacies(ctx context.Context, datasetID string, rows []model.Pharmacy) (int64, error) {
	data := make([][]any, 0, len(rows))
	for _, p := range rows {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		licenses := p.ClaimedLicenses
		if licenses == nil {
			licenses = []string{}
		}
		data = append(data, []any{id, datasetID, p.Name, p.Address, p.City, p.State, p.Zip, licenses})
	}

	n, err := db.CopyFrom(ctx, s.pool, "pharmacies",
		[]string{"id", "dataset_id", "name", "address", "city", "state", "zip", "claimed_licenses"}, data)
	return n, eris.Wrap(err, "postgres: insert pharmacies")
}

func (s *PostgresStore) InsertSearchResults(ctx context.Context, datasetID string, rows []model.SearchResult) (int64, error) {
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		data = append(data, []any{
			id, datasetID, r.SearchName, r.SearchState, r.LicenseNumber, r.LicenseStatus,
			r.Address, r.City, r.State, r.Zip, r.IssueDate, r.ExpirationDate,
			string(r.ResultStatus), r.SearchTimestamp.UTC(),
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "search_results",
		[]string{"id", "dataset_id", "search_name", "search_state", "license_number", "license_status",
			"address", "city", "state", "zip", "issue_date", "expiration_date",
			"result_status", "search_timestamp"}, data)
	return n, eris.Wrap(err, "postgres: insert search results")
}

func (s *PostgresStore) InsertOverride(ctx context.Context, o model.ValidatedOverride) error {
	if err := o.Validate(); err != nil {
		return eris.Wrap(ErrOverrideConflict, err.Error())
	}

	snapshot, err := json.Marshal(o.Snapshot)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal override snapshot")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO validated_overrides
		 (dataset_id, pharmacy_name, state_code, license_number, override_type, reason, validated_by, validated_at, snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.DatasetID, o.PharmacyName, o.StateCode, o.LicenseNumber, string(o.Type),
		o.Reason, o.ValidatedBy, o.ValidatedAt.UTC(), snapshot,
	)
	return eris.Wrapf(err, "postgres: insert override %s/%s", o.PharmacyName, o.StateCode)
}

func (s *PostgresStore) LoadPharmacies(ctx context.Context, datasetID string) ([]model.Pharmacy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset_id, name, address, city, state, zip, claimed_licenses
		 FROM pharmacies WHERE dataset_id = $1 ORDER BY name, id`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load pharmacies")
	}
	defer rows.Close()

	var pharmacies []model.Pharmacy
	for rows.Next() {
		var p model.Pharmacy
		if err := rows.Scan(&p.ID, &p.DatasetID, &p.Name, &p.Address, &p.City, &p.State, &p.Zip, &p.ClaimedLicenses); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pharmacy")
		}
		pharmacies = append(pharmacies, p)
	}
	return pharmacies, eris.Wrap(rows.Err(), "postgres: load pharmacies iterate")
}

func (s *PostgresStore) LoadSearchResults(ctx context.Context, datasetID string) ([]model.SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset_id, search_name, search_state, license_number, license_status,
		        address, city, state, zip, issue_date, expiration_date, result_status, search_timestamp
		 FROM search_results WHERE dataset_id = $1 ORDER BY search_name, search_state, search_timestamp DESC, id DESC`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load search results")
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.SearchName, &r.SearchState, &r.LicenseNumber, &r.LicenseStatus,
			&r.Address, &r.City, &r.State, &r.Zip, &r.IssueDate, &r.ExpirationDate, &r.ResultStatus, &r.SearchTimestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: load search results iterate")
}

func (s *PostgresStore) LoadOverrides(ctx context.Context, datasetID string) ([]model.ValidatedOverride, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dataset_id, pharmacy_name, state_code, license_number, override_type, reason, validated_by, validated_at, snapshot
		 FROM validated_overrides WHERE dataset_id = $1 ORDER BY pharmacy_name, state_code`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load overrides")
	}
	defer rows.Close()

	var overrides []model.ValidatedOverride
	for rows.Next() {
		var o model.ValidatedOverride
		var snapshot []byte
		if err := rows.Scan(&o.DatasetID, &o.PharmacyName, &o.StateCode, &o.LicenseNumber, &o.Type,
			&o.Reason, &o.ValidatedBy, &o.ValidatedAt, &snapshot); err != nil {
			return nil, eris.Wrap(err, "postgres: scan override")
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &o.Snapshot); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal override snapshot")
			}
		}
		overrides = append(overrides, o)
	}
	return overrides, eris.Wrap(rows.Err(), "postgres: load overrides iterate")
}

// missingScoresSQL discovers every scoreable pairing without a cached score:
// claimed (pharmacy, state) pairs joined by natural key against results_found
// rows, anti-joined against the cache on the full dataset-triple key.
const missingScoresSQL = `
SELECT p.id, r.id,
       p.address, p.city, p.state, p.zip,
       r.address, r.city, r.state, r.zip
FROM pharmacies p
CROSS JOIN LATERAL unnest(p.claimed_licenses) AS cl(state_code)
JOIN search_results r
  ON r.dataset_id = $2
 AND r.search_name = p.name
 AND r.search_state = cl.state_code
 AND r.result_status = 'results_found'
WHERE p.dataset_id = $1
  AND NOT EXISTS (
      SELECT 1 FROM match_scores m
      WHERE m.pharmacy_id = p.id
        AND m.result_id = r.id
        AND m.pharmacies_dataset_id = $1
        AND m.states_dataset_id = $2
  )
ORDER BY p.name, r.search_state, r.id`

func (s *PostgresStore) ListMissingScores(ctx context.Context, pharmaciesID, statesID string) ([]model.ScorePair, error) {
	rows, err := s.pool.Query(ctx, missingScoresSQL, pharmaciesID, statesID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list missing scores")
	}
	defer rows.Close()

	var pairs []model.ScorePair
	for rows.Next() {
		var sp model.ScorePair
		if err := rows.Scan(&sp.PharmacyID, &sp.ResultID,
			&sp.Reference.Street, &sp.Reference.City, &sp.Reference.State, &sp.Reference.Zip,
			&sp.Candidate.Street, &sp.Candidate.City, &sp.Candidate.State, &sp.Candidate.Zip); err != nil {
			return nil, eris.Wrap(err, "postgres: scan missing score pair")
		}
		pairs = append(pairs, sp)
	}
	return pairs, eris.Wrap(rows.Err(), "postgres: list missing scores iterate")
}

func (s *PostgresStore) InsertMatchScores(ctx context.Context, scores []model.MatchScore) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	data := make([][]any, 0, len(scores))
	now := time.Now().UTC()
	for _, sc := range scores {
		createdAt := sc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		data = append(data, []any{
			sc.PharmacyID, sc.ResultID, sc.PharmaciesDatasetID, sc.StatesDatasetID,
			sc.Overall, sc.Street, sc.CityStateZip, createdAt,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "match_scores",
		Columns: []string{"pharmacy_id", "result_id", "pharmacies_dataset_id", "states_dataset_id",
			"score_overall", "score_street", "score_city_state_zip", "created_at"},
		ConflictKeys: []string{"pharmacy_id", "result_id", "pharmacies_dataset_id", "states_dataset_id"},
	}, data)
	return n, eris.Wrap(err, "postgres: insert match scores")
}

func (s *PostgresStore) LoadMatchScores(ctx context.Context, pharmaciesID, statesID string) ([]model.MatchScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id,
		        score_overall, score_street, score_city_state_zip, created_at
		 FROM match_scores WHERE pharmacies_dataset_id = $1 AND states_dataset_id = $2`,
		pharmaciesID, statesID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load match scores")
	}
	defer rows.Close()

	var scores []model.MatchScore
	for rows.Next() {
		var sc model.MatchScore
		if err := rows.Scan(&sc.PharmacyID, &sc.ResultID, &sc.PharmaciesDatasetID, &sc.StatesDatasetID,
			&sc.Overall, &sc.Street, &sc.CityStateZip, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match score")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: load match scores iterate")
}
