package verify

import (
	"sort"

	"github.com/pharmscope/license-verify/internal/model"
)

// latestResult picks the pair's most recent search row for display context:
// timestamp descending, result id descending as tie-break.
func latestResult(results []*model.SearchResult) *model.SearchResult {
	var latest *model.SearchResult
	for _, r := range results {
		if latest == nil {
			latest = r
			continue
		}
		if r.SearchTimestamp.After(latest.SearchTimestamp) {
			latest = r
			continue
		}
		if r.SearchTimestamp.Equal(latest.SearchTimestamp) && r.ID > latest.ID {
			latest = r
		}
	}
	return latest
}

// bestResult picks the row driving classification: highest cached score
// first, result id descending as tie-break. A scored row always outranks an
// unscored one.
func bestResult(results []*model.SearchResult, pharmacyID string, s *Snapshot) *model.SearchResult {
	var (
		best      *model.SearchResult
		bestScore *model.MatchScore
	)
	for _, r := range results {
		sc := s.scoreOf(pharmacyID, r.ID)
		switch {
		case best == nil:
			best, bestScore = r, sc
		case sc != nil && bestScore == nil:
			best, bestScore = r, sc
		case sc != nil && bestScore != nil && sc.Overall > bestScore.Overall:
			best, bestScore = r, sc
		case sc != nil && bestScore != nil && sc.Overall == bestScore.Overall && r.ID > best.ID:
			best, bestScore = r, sc
		case sc == nil && bestScore == nil && r.ID > best.ID:
			best = r
		}
	}
	return best
}

// sortedPairs returns the snapshot's pairs ordered by pharmacy name then
// state code, the order both views present.
func sortedPairs(s *Snapshot) []model.Pair {
	pairs := s.Pairs()
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].PharmacyName != pairs[j].PharmacyName {
			return pairs[i].PharmacyName < pairs[j].PharmacyName
		}
		return pairs[i].StateCode < pairs[j].StateCode
	})
	return pairs
}

// buildComprehensive produces the flat view: one row per (pharmacy, state,
// result) triple, with a nil result for pairs that have none. Results within
// a pair are already ordered most recent first.
func buildComprehensive(s *Snapshot, c Classifier) []model.ComprehensiveRow {
	var rows []model.ComprehensiveRow

	for _, pair := range sortedPairs(s) {
		key := pairKey{Name: pair.PharmacyName, State: pair.StateCode}
		results := s.resultsByPair[key]
		overrides := s.overridesByPair[key]

		if len(results) == 0 {
			var override *model.ValidatedOverride
			if len(overrides) > 0 {
				override = pickOverride(overrides, nil)
				if override == nil {
					// Unmatched present override still surfaces on the row.
					override = &overrides[0]
				}
			}
			rows = append(rows, model.ComprehensiveRow{
				PharmacyID:   pair.PharmacyID,
				PharmacyName: pair.PharmacyName,
				StateCode:    pair.StateCode,
				Override:     override,
				Status:       model.StatusNoData,
			})
			continue
		}

		for _, r := range results {
			override := pickOverride(overrides, r.LicenseNumber)
			score := s.scoreOf(pair.PharmacyID, r.ID)

			m := mergedPair{Override: override, Best: r, Score: score}
			if override != nil && override.Type == model.OverridePresent {
				m.Matched = r
			}

			ts := r.SearchTimestamp
			rows = append(rows, model.ComprehensiveRow{
				PharmacyID:    pair.PharmacyID,
				PharmacyName:  pair.PharmacyName,
				StateCode:     pair.StateCode,
				Result:        r,
				Score:         score,
				Override:      override,
				Status:        c.Classify(m),
				SearchedAt:    &ts,
				LicenseNumber: r.LicenseNumber,
			})
		}
	}

	return rows
}

// buildMatrix produces the aggregated view: one row per pair, always exactly
// one per claimed (pharmacy, state) combination. The latest and best result
// picks are independent and both exposed.
func buildMatrix(s *Snapshot, c Classifier) *model.Matrix {
	warningsByPair := make(map[pairKey][]model.Warning)
	for _, w := range detectWarnings(s) {
		k := pairKey{Name: w.PharmacyName, State: w.StateCode}
		warningsByPair[k] = append(warningsByPair[k], w)
	}

	matrix := &model.Matrix{Summary: make(map[model.StatusBucket]int)}

	for _, pair := range sortedPairs(s) {
		key := pairKey{Name: pair.PharmacyName, State: pair.StateCode}
		results := s.resultsByPair[key]
		m := s.mergePair(pair)

		row := model.MatrixRow{
			PharmacyID:   pair.PharmacyID,
			PharmacyName: pair.PharmacyName,
			StateCode:    pair.StateCode,
			ResultCount:  len(results),
			Overridden:   m.Override != nil,
			Status:       c.Classify(m),
			Warnings:     warningsByPair[key],
		}

		if latest := latestResult(results); latest != nil {
			row.LatestResultID = &latest.ID
			row.LicenseNumber = latest.LicenseNumber
			row.LicenseStatus = latest.LicenseStatus
		}
		if m.Best != nil {
			row.BestResultID = &m.Best.ID
		}
		if m.Score != nil {
			overall := m.Score.Overall
			row.BestScore = &overall
		}
		if m.Override != nil && m.Override.Type == model.OverridePresent {
			row.LicenseNumber = m.Override.LicenseNumber
			if m.Matched != nil {
				row.LicenseStatus = m.Matched.LicenseStatus
			}
		}

		matrix.Rows = append(matrix.Rows, row)
		matrix.Summary[row.Status]++
	}

	return matrix
}
