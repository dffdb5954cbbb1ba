package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pharmscope/license-verify/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local and
// dev setups; semantics mirror PostgresStore, with claimed_licenses and
// override snapshots stored as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	tag         TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
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
	claimed_licenses TEXT NOT NULL DEFAULT '[]'
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
	search_timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS match_scores (
	pharmacy_id           TEXT NOT NULL,
	result_id             TEXT NOT NULL,
	pharmacies_dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	states_dataset_id     TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	score_overall         REAL NOT NULL,
	score_street          REAL NOT NULL,
	score_city_state_zip  REAL NOT NULL,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
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
	validated_at   DATETIME NOT NULL,
	snapshot       TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_pharmacies_dataset ON pharmacies(dataset_id, name);
CREATE INDEX IF NOT EXISTS idx_results_pair ON search_results(dataset_id, search_name, search_state);
CREATE INDEX IF NOT EXISTS idx_scores_datasets ON match_scores(pharmacies_dataset_id, states_dataset_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_overrides_natural_key
	ON validated_overrides(dataset_id, pharmacy_name, state_code, COALESCE(license_number, ''));
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ResolveDataset(ctx context.Context, kind model.DatasetKind, tag string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM datasets WHERE kind = ? AND tag = ?`,
		string(kind), tag,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", eris.Wrapf(ErrDatasetNotFound, "sqlite: %s/%s", kind, tag)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: resolve dataset %s/%s", kind, tag)
	}
	return id, nil
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, kind model.DatasetKind, tag, createdBy, description string) (*model.Dataset, error) {
	if !kind.Valid() {
		return nil, eris.Errorf("sqlite: unknown dataset kind %q", kind)
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, kind, tag, created_at, created_by, description) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), tag, now, createdBy, description,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, eris.Wrapf(ErrDatasetExists, "sqlite: %s/%s", kind, tag)
		}
		return nil, eris.Wrapf(err, "sqlite: create dataset %s/%s", kind, tag)
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

func (s *SQLiteStore) ListDatasets(ctx context.Context, kind model.DatasetKind) ([]model.Dataset, error) {
	query := `SELECT id, kind, tag, created_at, created_by, description FROM datasets`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY kind, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer rows.Close()

	var datasets []model.Dataset
	for rows.Next() {
		var d model.Dataset
		if err := rows.Scan(&d.ID, &d.Kind, &d.Tag, &d.CreatedAt, &d.CreatedBy, &d.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		datasets = append(datasets, d)
	}
	return datasets, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, kind model.DatasetKind, tag string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE kind = ? AND tag = ?`,
		string(kind), tag,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete dataset %s/%s", kind, tag)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrDatasetNotFound, "sqlite: %s/%s", kind, tag)
	}
	return nil
}

func (s *SQLiteStore) InsertPharmacies(ctx context.Context, datasetID string, rows []model.Pharmacy) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert pharmacies")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pharmacies (id, dataset_id, name, address, city, state, zip, claimed_licenses)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert pharmacies")
	}
	defer stmt.Close()

	var n int64
	for _, p := range rows {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		licenses, err := json.Marshal(p.ClaimedLicenses)
		if err != nil {
			return n, eris.Wrap(err, "sqlite: marshal claimed licenses")
		}
		if _, err := stmt.ExecContext(ctx, id, datasetID, p.Name, p.Address, p.City, p.State, p.Zip, string(licenses)); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert pharmacy %s", p.Name)
		}
		n++
	}

	return n, eris.Wrap(tx.Commit(), "sqlite: commit insert pharmacies")
}

func (s *SQLiteStore) InsertSearchResults(ctx context.Context, datasetID string, rows []model.SearchResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert search results")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO search_results
		 (id, dataset_id, search_name, search_state, license_number, license_status,
		  address, city, state, zip, issue_date, expiration_date, result_status, search_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert search results")
	}
	defer stmt.Close()

	var n int64
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, datasetID, r.SearchName, r.SearchState, r.LicenseNumber, r.LicenseStatus,
			r.Address, r.City, r.State, r.Zip, r.IssueDate, r.ExpirationDate,
			string(r.ResultStatus), r.SearchTimestamp.UTC()); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert search result %s/%s", r.SearchName, r.SearchState)
		}
		n++
	}

	return n, eris.Wrap(tx.Commit(), "sqlite: commit insert search results")
}

func (s *SQLiteStore) InsertOverride(ctx context.Context, o model.ValidatedOverride) error {
	if err := o.Validate(); err != nil {
		return eris.Wrap(ErrOverrideConflict, err.Error())
	}

	snapshot, err := json.Marshal(o.Snapshot)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal override snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validated_overrides
		 (dataset_id, pharmacy_name, state_code, license_number, override_type, reason, validated_by, validated_at, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.DatasetID, o.PharmacyName, o.StateCode, o.LicenseNumber, string(o.Type),
		o.Reason, o.ValidatedBy, o.ValidatedAt.UTC(), string(snapshot),
	)
	return eris.Wrapf(err, "sqlite: insert override %s/%s", o.PharmacyName, o.StateCode)
}

func (s *SQLiteStore) LoadPharmacies(ctx context.Context, datasetID string) ([]model.Pharmacy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, name, address, city, state, zip, claimed_licenses
		 FROM pharmacies WHERE dataset_id = ? ORDER BY name, id`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load pharmacies")
	}
	defer rows.Close()

	var pharmacies []model.Pharmacy
	for rows.Next() {
		var p model.Pharmacy
		var licenses string
		if err := rows.Scan(&p.ID, &p.DatasetID, &p.Name, &p.Address, &p.City, &p.State, &p.Zip, &licenses); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pharmacy")
		}
		if err := json.Unmarshal([]byte(licenses), &p.ClaimedLicenses); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal claimed licenses")
		}
		pharmacies = append(pharmacies, p)
	}
	return pharmacies, eris.Wrap(rows.Err(), "sqlite: load pharmacies iterate")
}

func (s *SQLiteStore) LoadSearchResults(ctx context.Context, datasetID string) ([]model.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, search_name, search_state, license_number, license_status,
		        address, city, state, zip, issue_date, expiration_date, result_status, search_timestamp
		 FROM search_results WHERE dataset_id = ? ORDER BY search_name, search_state, search_timestamp DESC, id DESC`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load search results")
	}
	defer rows.Close()

	var results []model.SearchResult
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.SearchName, &r.SearchState, &r.LicenseNumber, &r.LicenseStatus,
			&r.Address, &r.City, &r.State, &r.Zip, &r.IssueDate, &r.ExpirationDate, &r.ResultStatus, &r.SearchTimestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: load search results iterate")
}

func (s *SQLiteStore) LoadOverrides(ctx context.Context, datasetID string) ([]model.ValidatedOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dataset_id, pharmacy_name, state_code, license_number, override_type, reason, validated_by, validated_at, snapshot
		 FROM validated_overrides WHERE dataset_id = ? ORDER BY pharmacy_name, state_code`,
		datasetID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load overrides")
	}
	defer rows.Close()

	var overrides []model.ValidatedOverride
	for rows.Next() {
		var o model.ValidatedOverride
		var snapshot string
		if err := rows.Scan(&o.DatasetID, &o.PharmacyName, &o.StateCode, &o.LicenseNumber, &o.Type,
			&o.Reason, &o.ValidatedBy, &o.ValidatedAt, &snapshot); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan override")
		}
		if snapshot != "" {
			if err := json.Unmarshal([]byte(snapshot), &o.Snapshot); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal override snapshot")
			}
		}
		overrides = append(overrides, o)
	}
	return overrides, eris.Wrap(rows.Err(), "sqlite: load overrides iterate")
}

// sqliteMissingScoresSQL mirrors the Postgres query; claimed_licenses is a
// JSON array here so the pair expansion uses json_each.
const sqliteMissingScoresSQL = `
SELECT p.id, r.id,
       p.address, p.city, p.state, p.zip,
       r.address, r.city, r.state, r.zip
FROM pharmacies p
JOIN json_each(p.claimed_licenses) cl
JOIN search_results r
  ON r.dataset_id = ?2
 AND r.search_name = p.name
 AND r.search_state = cl.value
 AND r.result_status = 'results_found'
WHERE p.dataset_id = ?1
  AND NOT EXISTS (
      SELECT 1 FROM match_scores m
      WHERE m.pharmacy_id = p.id
        AND m.result_id = r.id
        AND m.pharmacies_dataset_id = ?1
        AND m.states_dataset_id = ?2
  )
ORDER BY p.name, r.search_state, r.id`

func (s *SQLiteStore) ListMissingScores(ctx context.Context, pharmaciesID, statesID string) ([]model.ScorePair, error) {
	rows, err := s.db.QueryContext(ctx, sqliteMissingScoresSQL, pharmaciesID, statesID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list missing scores")
	}
	defer rows.Close()

	var pairs []model.ScorePair
	for rows.Next() {
		var sp model.ScorePair
		if err := rows.Scan(&sp.PharmacyID, &sp.ResultID,
			&sp.Reference.Street, &sp.Reference.City, &sp.Reference.State, &sp.Reference.Zip,
			&sp.Candidate.Street, &sp.Candidate.City, &sp.Candidate.State, &sp.Candidate.Zip); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan missing score pair")
		}
		pairs = append(pairs, sp)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: list missing scores iterate")
}

func (s *SQLiteStore) InsertMatchScores(ctx context.Context, scores []model.MatchScore) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert scores")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_scores
		 (pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id,
		  score_overall, score_street, score_city_state_zip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert scores")
	}
	defer stmt.Close()

	var inserted int64
	now := time.Now().UTC()
	for _, sc := range scores {
		createdAt := sc.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		res, err := stmt.ExecContext(ctx,
			sc.PharmacyID, sc.ResultID, sc.PharmaciesDatasetID, sc.StatesDatasetID,
			sc.Overall, sc.Street, sc.CityStateZip, createdAt,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "sqlite: insert score %s/%s", sc.PharmacyID, sc.ResultID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += n
	}

	return inserted, eris.Wrap(tx.Commit(), "sqlite: commit insert scores")
}

func (s *SQLiteStore) LoadMatchScores(ctx context.Context, pharmaciesID, statesID string) ([]model.MatchScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pharmacy_id, result_id, pharmacies_dataset_id, states_dataset_id,
		        score_overall, score_street, score_city_state_zip, created_at
		 FROM match_scores WHERE pharmacies_dataset_id = ? AND states_dataset_id = ?`,
		pharmaciesID, statesID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load match scores")
	}
	defer rows.Close()

	var scores []model.MatchScore
	for rows.Next() {
		var sc model.MatchScore
		if err := rows.Scan(&sc.PharmacyID, &sc.ResultID, &sc.PharmaciesDatasetID, &sc.StatesDatasetID,
			&sc.Overall, &sc.Street, &sc.CityStateZip, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match score")
		}
		scores = append(scores, sc)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: load match scores iterate")
}
