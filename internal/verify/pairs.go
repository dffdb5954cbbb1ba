package verify

import "github.com/pharmscope/license-verify/internal/model"

// ResolvePairs flattens each pharmacy's claimed licenses into (pharmacy,
// state) pairs. A state claimed twice contributes one pair; a pharmacy with
// no claims contributes none and is absent from all downstream views.
func ResolvePairs(pharmacies []model.Pharmacy) []model.Pair {
	var pairs []model.Pair
	for i := range pharmacies {
		p := &pharmacies[i]
		seen := make(map[string]struct{}, len(p.ClaimedLicenses))
		for _, state := range p.ClaimedLicenses {
			if state == "" {
				continue
			}
			if _, dup := seen[state]; dup {
				continue
			}
			seen[state] = struct{}{}
			pairs = append(pairs, model.Pair{
				PharmacyID:   p.ID,
				PharmacyName: p.Name,
				StateCode:    state,
			})
		}
	}
	return pairs
}

// Pairs returns the snapshot's verification pairs in pharmacy-load order,
// which is already sorted by name.
func (s *Snapshot) Pairs() []model.Pair {
	return ResolvePairs(s.Pharmacies)
}
