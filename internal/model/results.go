package model

import "time"

// StatusBucket is the final classification of a (pharmacy, state) pair.
type StatusBucket string

const (
	StatusMatch     StatusBucket = "match"
	StatusWeakMatch StatusBucket = "weak_match"
	StatusNoMatch   StatusBucket = "no_match"
	StatusNoData    StatusBucket = "no_data"
)

// WarningKind identifies one consistency check between overrides and the
// currently selected datasets.
type WarningKind string

const (
	// WarnEmptyContradicted: an empty override exists but the current states
	// dataset holds a results_found row for the pair.
	WarnEmptyContradicted WarningKind = "empty_validation_contradicted"
	// WarnLicenseMissing: a present override's license number no longer
	// appears in the current search data.
	WarnLicenseMissing WarningKind = "validated_license_missing"
	// WarnPharmacyAbsent: the validated pharmacy name has no row in the
	// current pharmacies dataset.
	WarnPharmacyAbsent WarningKind = "validated_pharmacy_absent"
	// WarnStateUnclaimed: a present override's state is no longer in the
	// pharmacy's claimed licenses.
	WarnStateUnclaimed WarningKind = "validated_state_unclaimed"
	// WarnFieldDrift: snapshot fields differ from the matched current result.
	WarnFieldDrift WarningKind = "validated_fields_drifted"
)

// Severity grades a consistency finding. Findings are always advisory data,
// never raised as errors.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Warning is one consistency finding for an override row.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	Severity      Severity    `json:"severity"`
	PharmacyName  string      `json:"pharmacy_name"`
	StateCode     string      `json:"state_code"`
	LicenseNumber *string     `json:"license_number,omitempty"`
	Detail        string      `json:"detail"`
}

// Pair is one (pharmacy, state) combination implied by a claimed license.
type Pair struct {
	PharmacyID   string `json:"pharmacy_id"`
	PharmacyName string `json:"pharmacy_name"`
	StateCode    string `json:"state_code"`
}

// ComprehensiveRow is one row of the flat, unaggregated results view: one row
// per (pharmacy, state, search result) triple, with nils for pairs that have
// no search result at all.
type ComprehensiveRow struct {
	PharmacyID    string             `json:"pharmacy_id"`
	PharmacyName  string             `json:"pharmacy_name"`
	StateCode     string             `json:"state_code"`
	Result        *SearchResult      `json:"result,omitempty"`
	Score         *MatchScore        `json:"score,omitempty"`
	Override      *ValidatedOverride `json:"override,omitempty"`
	Status        StatusBucket       `json:"status"`
	SearchedAt    *time.Time         `json:"searched_at,omitempty"`
	LicenseNumber *string            `json:"license_number,omitempty"`
}

// MatrixRow is one row of the aggregated matrix view: one row per
// (pharmacy, state) pair. LatestResultID (most recent search, for display)
// and BestResultID (best-scoring result, drives the status) may point at
// different underlying rows; both are exposed.
type MatrixRow struct {
	PharmacyID     string       `json:"pharmacy_id"`
	PharmacyName   string       `json:"pharmacy_name"`
	StateCode      string       `json:"state_code"`
	LatestResultID *string      `json:"latest_result_id,omitempty"`
	BestResultID   *string      `json:"best_result_id,omitempty"`
	BestScore      *float64     `json:"best_score,omitempty"`
	LicenseNumber  *string      `json:"license_number,omitempty"`
	LicenseStatus  string       `json:"license_status,omitempty"`
	ResultCount    int          `json:"result_count"`
	Overridden     bool         `json:"overridden"`
	Status         StatusBucket `json:"status"`
	Warnings       []Warning    `json:"warnings,omitempty"`
}

// Matrix is the aggregated view plus per-bucket summary counts.
type Matrix struct {
	Rows    []MatrixRow          `json:"rows"`
	Summary map[StatusBucket]int `json:"summary"`
}
