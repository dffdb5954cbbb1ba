package verify

import (
	"context"

	"github.com/pharmscope/license-verify/internal/model"
)

// pairKey is the natural key joining pharmacies to search results and
// overrides. Dataset snapshots share no surrogate keys, so all cross-dataset
// lookups go through this composite.
type pairKey struct {
	Name  string
	State string
}

// scoreKey identifies one cached scoring computation within a snapshot.
type scoreKey struct {
	PharmacyID string
	ResultID   string
}

// Snapshot is the request-scoped working set: the three dataset slices
// loaded once and indexed by natural key. Immutable after load; all merging
// and classification reads from it.
type Snapshot struct {
	IDs datasetIDs

	Pharmacies []model.Pharmacy
	Results    []model.SearchResult
	Overrides  []model.ValidatedOverride
	Scores     []model.MatchScore

	pharmacyByName  map[string]*model.Pharmacy
	resultsByPair   map[pairKey][]*model.SearchResult
	overridesByPair map[pairKey][]model.ValidatedOverride
	scoreByKey      map[scoreKey]*model.MatchScore
}

// loadSnapshot loads everything a request needs in one pass. Overrides are
// skipped entirely when no validated dataset was resolved.
func (e *Engine) loadSnapshot(ctx context.Context, ids datasetIDs) (*Snapshot, error) {
	snap := &Snapshot{IDs: ids}
	var err error

	if snap.Pharmacies, err = e.store.LoadPharmacies(ctx, ids.Pharmacies); err != nil {
		return nil, err
	}
	if snap.Results, err = e.store.LoadSearchResults(ctx, ids.States); err != nil {
		return nil, err
	}
	if ids.Validated != "" {
		if snap.Overrides, err = e.store.LoadOverrides(ctx, ids.Validated); err != nil {
			return nil, err
		}
	}
	if snap.Scores, err = e.store.LoadMatchScores(ctx, ids.Pharmacies, ids.States); err != nil {
		return nil, err
	}

	snap.index()
	return snap, nil
}

func (s *Snapshot) index() {
	s.pharmacyByName = make(map[string]*model.Pharmacy, len(s.Pharmacies))
	for i := range s.Pharmacies {
		p := &s.Pharmacies[i]
		s.pharmacyByName[p.Name] = p
	}

	// Results arrive ordered most-recent-first per pair; appending preserves
	// that order for latestResult.
	s.resultsByPair = make(map[pairKey][]*model.SearchResult)
	for i := range s.Results {
		r := &s.Results[i]
		k := pairKey{Name: r.SearchName, State: r.SearchState}
		s.resultsByPair[k] = append(s.resultsByPair[k], r)
	}

	s.overridesByPair = make(map[pairKey][]model.ValidatedOverride)
	for _, o := range s.Overrides {
		k := pairKey{Name: o.PharmacyName, State: o.StateCode}
		s.overridesByPair[k] = append(s.overridesByPair[k], o)
	}

	s.scoreByKey = make(map[scoreKey]*model.MatchScore, len(s.Scores))
	for i := range s.Scores {
		sc := &s.Scores[i]
		s.scoreByKey[scoreKey{PharmacyID: sc.PharmacyID, ResultID: sc.ResultID}] = sc
	}
}

// scoreOf returns the cached score for one pairing, or nil when the pairing
// was never scored (not yet computed, or scoring failed).
func (s *Snapshot) scoreOf(pharmacyID, resultID string) *model.MatchScore {
	return s.scoreByKey[scoreKey{PharmacyID: pharmacyID, ResultID: resultID}]
}
