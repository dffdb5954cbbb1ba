package verify

import (
	"fmt"
	"strings"

	"github.com/pharmscope/license-verify/internal/model"
)

// detectWarnings runs the consistency checks for every override against the
// current pharmacies and states datasets. The checks are independent and
// non-exclusive; one override can produce several findings. Findings are
// advisory data, never errors.
func detectWarnings(s *Snapshot) []model.Warning {
	var warnings []model.Warning

	for i := range s.Overrides {
		o := &s.Overrides[i]
		key := pairKey{Name: o.PharmacyName, State: o.StateCode}
		results := s.resultsByPair[key]
		pharmacy := s.pharmacyByName[o.PharmacyName]

		if pharmacy == nil {
			warnings = append(warnings, model.Warning{
				Kind:          model.WarnPharmacyAbsent,
				Severity:      model.SeverityError,
				PharmacyName:  o.PharmacyName,
				StateCode:     o.StateCode,
				LicenseNumber: o.LicenseNumber,
				Detail:        fmt.Sprintf("validated pharmacy %q has no row in the current pharmacies dataset", o.PharmacyName),
			})
		}

		switch o.Type {
		case model.OverrideEmpty:
			if hasFoundResult(results) {
				warnings = append(warnings, model.Warning{
					Kind:         model.WarnEmptyContradicted,
					Severity:     model.SeverityWarning,
					PharmacyName: o.PharmacyName,
					StateCode:    o.StateCode,
					Detail:       fmt.Sprintf("empty validation for %s/%s contradicted by new search results", o.PharmacyName, o.StateCode),
				})
			}

		case model.OverridePresent:
			matched := findByLicense(results, o.LicenseNumber)
			if matched == nil {
				warnings = append(warnings, model.Warning{
					Kind:          model.WarnLicenseMissing,
					Severity:      model.SeverityWarning,
					PharmacyName:  o.PharmacyName,
					StateCode:     o.StateCode,
					LicenseNumber: o.LicenseNumber,
					Detail:        fmt.Sprintf("validated license %s missing from current search data", deref(o.LicenseNumber)),
				})
			}
			if pharmacy != nil && !claimsState(pharmacy, o.StateCode) {
				warnings = append(warnings, model.Warning{
					Kind:          model.WarnStateUnclaimed,
					Severity:      model.SeverityWarning,
					PharmacyName:  o.PharmacyName,
					StateCode:     o.StateCode,
					LicenseNumber: o.LicenseNumber,
					Detail:        fmt.Sprintf("validated license in %s but the pharmacy no longer claims that state", o.StateCode),
				})
			}
			if matched != nil {
				if drifted := driftedFields(&o.Snapshot, matched); len(drifted) > 0 {
					warnings = append(warnings, model.Warning{
						Kind:          model.WarnFieldDrift,
						Severity:      model.SeverityWarning,
						PharmacyName:  o.PharmacyName,
						StateCode:     o.StateCode,
						LicenseNumber: o.LicenseNumber,
						Detail:        "search result fields changed since validation: " + strings.Join(drifted, ", "),
					})
				}
			}
		}
	}

	return warnings
}

func hasFoundResult(results []*model.SearchResult) bool {
	for _, r := range results {
		if r.ResultStatus == model.ResultsFound {
			return true
		}
	}
	return false
}

func findByLicense(results []*model.SearchResult, license *string) *model.SearchResult {
	if license == nil {
		return nil
	}
	for _, r := range results {
		if r.LicenseNumber != nil && *r.LicenseNumber == *license {
			return r
		}
	}
	return nil
}

func claimsState(p *model.Pharmacy, state string) bool {
	for _, s := range p.ClaimedLicenses {
		if s == state {
			return true
		}
	}
	return false
}

// driftedFields compares the override's frozen snapshot against the matched
// current result and names each field that changed. Snapshot fields left
// empty at validation time are not compared.
func driftedFields(snap *model.OverrideSnapshot, r *model.SearchResult) []string {
	var drifted []string
	check := func(field, was, now string) {
		if was != "" && was != now {
			drifted = append(drifted, field)
		}
	}
	check("license_status", snap.LicenseStatus, r.LicenseStatus)
	check("address", snap.Address, r.Address)
	check("city", snap.City, r.City)
	check("issue_date", snap.IssueDate, r.IssueDate)
	check("expiration_date", snap.ExpirationDate, r.ExpirationDate)
	return drifted
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
