package model

import "time"

// AddressParts is an address split into the street line and the
// city/state/zip line, scored independently.
type AddressParts struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// MatchScore is one permanently cached scoring computation. The composite key
// (PharmacyID, ResultID, PharmaciesDatasetID, StatesDatasetID) is unique:
// dataset snapshots are immutable, so the same key always yields the same
// inputs and the row is never recomputed.
type MatchScore struct {
	PharmacyID          string    `json:"pharmacy_id"`
	ResultID            string    `json:"result_id"`
	PharmaciesDatasetID string    `json:"pharmacies_dataset_id"`
	StatesDatasetID     string    `json:"states_dataset_id"`
	Overall             float64   `json:"score_overall"`
	Street              float64   `json:"score_street"`
	CityStateZip        float64   `json:"score_city_state_zip"`
	CreatedAt           time.Time `json:"created_at"`
}

// ScorePair is one (pharmacy, search result) pairing awaiting its first
// score, carrying both addresses so the scorer needs no further reads.
type ScorePair struct {
	PharmacyID string       `json:"pharmacy_id"`
	ResultID   string       `json:"result_id"`
	Reference  AddressParts `json:"reference"`
	Candidate  AddressParts `json:"candidate"`
}

// ScoreReport summarizes one EnsureScored batch.
type ScoreReport struct {
	Computed int `json:"computed"`
	Errors   int `json:"errors"`
}
