package model

import "time"

// DatasetKind identifies which of the three dataset tables a tag versions.
type DatasetKind string

const (
	DatasetPharmacies DatasetKind = "pharmacies"
	DatasetStates     DatasetKind = "states"
	DatasetValidated  DatasetKind = "validated"
)

// Valid reports whether k is one of the three known kinds.
func (k DatasetKind) Valid() bool {
	switch k {
	case DatasetPharmacies, DatasetStates, DatasetValidated:
		return true
	}
	return false
}

// Dataset is one immutable, tagged snapshot of a dataset kind. A tag is a
// human-chosen natural key unique within its kind; rows are created by the
// import pipeline and never mutated afterward.
type Dataset struct {
	ID          string      `json:"id"`
	Kind        DatasetKind `json:"kind"`
	Tag         string      `json:"tag"`
	CreatedAt   time.Time   `json:"created_at"`
	CreatedBy   string      `json:"created_by"`
	Description string      `json:"description,omitempty"`
}

// DatasetTriple names the three tags a verification request operates over.
// ValidatedTag may be empty: the caller is asserting "no overrides", which is
// distinct from a tag that fails to resolve.
type DatasetTriple struct {
	PharmaciesTag string `json:"pharmacies_tag"`
	StatesTag     string `json:"states_tag"`
	ValidatedTag  string `json:"validated_tag,omitempty"`
}
