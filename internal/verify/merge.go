package verify

import "github.com/pharmscope/license-verify/internal/model"

// mergedPair is the override/score state of one (pharmacy, state) pair after
// merging, ready for classification.
type mergedPair struct {
	// Override is the single override attached to the pair, nil if none.
	Override *model.ValidatedOverride
	// Matched is the search result the override attached to. Only set for
	// present overrides whose license number exists in the current results.
	Matched *model.SearchResult
	// Best is the result driving classification: the override's matched
	// result when overridden, otherwise the best-scoring result.
	Best  *model.SearchResult
	Score *model.MatchScore
}

// pickOverride selects the override attaching to a result with the given
// license number. Present overrides attach only on an exact license match;
// empty overrides attach to every result for the pair. Present beats empty
// when both could match.
func pickOverride(candidates []model.ValidatedOverride, licenseNumber *string) *model.ValidatedOverride {
	var empty *model.ValidatedOverride
	for i := range candidates {
		o := &candidates[i]
		switch o.Type {
		case model.OverridePresent:
			if licenseNumber != nil && o.LicenseNumber != nil && *o.LicenseNumber == *licenseNumber {
				return o
			}
		case model.OverrideEmpty:
			empty = o
		}
	}
	return empty
}

// mergePair resolves the override and driving result for one pair.
func (s *Snapshot) mergePair(pair model.Pair) mergedPair {
	key := pairKey{Name: pair.PharmacyName, State: pair.StateCode}
	results := s.resultsByPair[key]
	overrides := s.overridesByPair[key]

	var m mergedPair

	// A present override pins classification to its exact result. An
	// unmatched present override still owns the pair: the validation can no
	// longer be confirmed from current data.
	for i := range overrides {
		o := &overrides[i]
		if o.Type != model.OverridePresent {
			continue
		}
		m.Override = o
		for _, r := range results {
			if r.LicenseNumber != nil && o.LicenseNumber != nil && *r.LicenseNumber == *o.LicenseNumber {
				m.Matched = r
				break
			}
		}
		break
	}

	if m.Override == nil {
		for i := range overrides {
			if overrides[i].Type == model.OverrideEmpty {
				m.Override = &overrides[i]
				break
			}
		}
	}

	switch {
	case m.Matched != nil:
		m.Best = m.Matched
	case m.Override == nil:
		m.Best = bestResult(results, pair.PharmacyID, s)
	}
	if m.Best != nil {
		m.Score = s.scoreOf(pair.PharmacyID, m.Best.ID)
	}
	return m
}
