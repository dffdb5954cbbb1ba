package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// OverrideType distinguishes the two manual validation assertions.
type OverrideType string

const (
	// OverridePresent asserts that a specific license number is valid for
	// the pair; it attaches only to results with that exact number.
	OverridePresent OverrideType = "present"
	// OverrideEmpty asserts that no valid license exists for the pair; it
	// attaches to every result regardless of license number.
	OverrideEmpty OverrideType = "empty"
)

// OverrideSnapshot freezes the search-result fields seen at validation time.
// Used only for drift detection, never for classification.
type OverrideSnapshot struct {
	LicenseStatus  string `json:"license_status,omitempty" yaml:"license_status"`
	Address        string `json:"address,omitempty" yaml:"address"`
	City           string `json:"city,omitempty" yaml:"city"`
	Zip            string `json:"zip,omitempty" yaml:"zip"`
	IssueDate      string `json:"issue_date,omitempty" yaml:"issue_date"`
	ExpirationDate string `json:"expiration_date,omitempty" yaml:"expiration_date"`
}

// ValidatedOverride is a manually-entered assertion that supersedes computed
// search/score data for one (pharmacy_name, state_code) pair. Natural key:
// (dataset_id, pharmacy_name, state_code, license_number).
type ValidatedOverride struct {
	DatasetID     string           `json:"dataset_id"`
	PharmacyName  string           `json:"pharmacy_name"`
	StateCode     string           `json:"state_code"`
	LicenseNumber *string          `json:"license_number,omitempty"`
	Type          OverrideType     `json:"override_type"`
	Reason        string           `json:"reason,omitempty"`
	ValidatedBy   string           `json:"validated_by"`
	ValidatedAt   time.Time        `json:"validated_at"`
	Snapshot      OverrideSnapshot `json:"snapshot"`
}

// Validate enforces the license-number rule for the override type: present
// requires a non-empty license number, empty forbids one. Violations are
// rejected at write time and never reach the classifier.
func (o *ValidatedOverride) Validate() error {
	switch o.Type {
	case OverridePresent:
		if o.LicenseNumber == nil || *o.LicenseNumber == "" {
			return eris.Errorf("override: present override for %s/%s requires a license number", o.PharmacyName, o.StateCode)
		}
	case OverrideEmpty:
		if o.LicenseNumber != nil {
			return eris.Errorf("override: empty override for %s/%s must not carry a license number", o.PharmacyName, o.StateCode)
		}
	default:
		return eris.Errorf("override: unknown type %q", o.Type)
	}
	return nil
}
