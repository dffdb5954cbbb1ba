// Package fixture loads seed data files: a YAML document holding the three
// dataset slices, used by the seed command and for local setups.
package fixture

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pharmscope/license-verify/internal/model"
)

// Seed is one importable snapshot: a tag per dataset kind plus its rows.
// Any of the three sections may be omitted.
type Seed struct {
	Pharmacies *PharmacySeed  `yaml:"pharmacies"`
	States     *StateSeed     `yaml:"states"`
	Validated  *ValidatedSeed `yaml:"validated"`
}

type PharmacySeed struct {
	Tag  string `yaml:"tag"`
	Rows []struct {
		Name            string   `yaml:"name"`
		Address         string   `yaml:"address"`
		City            string   `yaml:"city"`
		State           string   `yaml:"state"`
		Zip             string   `yaml:"zip"`
		ClaimedLicenses []string `yaml:"claimed_licenses"`
	} `yaml:"rows"`
}

type StateSeed struct {
	Tag  string `yaml:"tag"`
	Rows []struct {
		SearchName      string    `yaml:"search_name"`
		SearchState     string    `yaml:"search_state"`
		LicenseNumber   string    `yaml:"license_number"`
		LicenseStatus   string    `yaml:"license_status"`
		Address         string    `yaml:"address"`
		City            string    `yaml:"city"`
		State           string    `yaml:"state"`
		Zip             string    `yaml:"zip"`
		IssueDate       string    `yaml:"issue_date"`
		ExpirationDate  string    `yaml:"expiration_date"`
		ResultStatus    string    `yaml:"result_status"`
		SearchTimestamp time.Time `yaml:"search_timestamp"`
	} `yaml:"rows"`
}

type ValidatedSeed struct {
	Tag  string `yaml:"tag"`
	Rows []struct {
		PharmacyName  string                 `yaml:"pharmacy_name"`
		StateCode     string                 `yaml:"state_code"`
		LicenseNumber string                 `yaml:"license_number"`
		OverrideType  string                 `yaml:"override_type"`
		Reason        string                 `yaml:"reason"`
		ValidatedBy   string                 `yaml:"validated_by"`
		ValidatedAt   time.Time              `yaml:"validated_at"`
		Snapshot      model.OverrideSnapshot `yaml:"snapshot"`
	} `yaml:"rows"`
}

// Load reads a seed YAML file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrapf(err, "fixture: parse %s", path)
	}

	if seed.Pharmacies == nil && seed.States == nil && seed.Validated == nil {
		return nil, eris.Errorf("fixture: %s contains no dataset sections", path)
	}
	return &seed, nil
}

// PharmacyRows converts the pharmacies section to model rows.
func (s *Seed) PharmacyRows() []model.Pharmacy {
	if s.Pharmacies == nil {
		return nil
	}
	rows := make([]model.Pharmacy, 0, len(s.Pharmacies.Rows))
	for _, r := range s.Pharmacies.Rows {
		rows = append(rows, model.Pharmacy{
			Name:            r.Name,
			Address:         r.Address,
			City:            r.City,
			State:           r.State,
			Zip:             r.Zip,
			ClaimedLicenses: r.ClaimedLicenses,
		})
	}
	return rows
}

// SearchResultRows converts the states section to model rows. A row with no
// explicit result_status defaults to results_found; a missing timestamp
// defaults to now.
func (s *Seed) SearchResultRows() []model.SearchResult {
	if s.States == nil {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]model.SearchResult, 0, len(s.States.Rows))
	for _, r := range s.States.Rows {
		status := model.ResultStatus(r.ResultStatus)
		if status == "" {
			status = model.ResultsFound
		}
		ts := r.SearchTimestamp
		if ts.IsZero() {
			ts = now
		}
		var license *string
		if r.LicenseNumber != "" {
			l := r.LicenseNumber
			license = &l
		}
		rows = append(rows, model.SearchResult{
			SearchName:      r.SearchName,
			SearchState:     r.SearchState,
			LicenseNumber:   license,
			LicenseStatus:   r.LicenseStatus,
			Address:         r.Address,
			City:            r.City,
			State:           r.State,
			Zip:             r.Zip,
			IssueDate:       r.IssueDate,
			ExpirationDate:  r.ExpirationDate,
			ResultStatus:    status,
			SearchTimestamp: ts,
		})
	}
	return rows
}

// OverrideRows converts the validated section to model rows. The dataset id
// is filled in by the caller after creating the dataset.
func (s *Seed) OverrideRows() []model.ValidatedOverride {
	if s.Validated == nil {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]model.ValidatedOverride, 0, len(s.Validated.Rows))
	for _, r := range s.Validated.Rows {
		var license *string
		if r.LicenseNumber != "" {
			l := r.LicenseNumber
			license = &l
		}
		at := r.ValidatedAt
		if at.IsZero() {
			at = now
		}
		rows = append(rows, model.ValidatedOverride{
			PharmacyName:  r.PharmacyName,
			StateCode:     r.StateCode,
			LicenseNumber: license,
			Type:          model.OverrideType(r.OverrideType),
			Reason:        r.Reason,
			ValidatedBy:   r.ValidatedBy,
			ValidatedAt:   at,
			Snapshot:      r.Snapshot,
		})
	}
	return rows
}
