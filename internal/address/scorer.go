package address

import (
	"math"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/rotisserie/eris"

	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/model"
)

// Score holds the composite scoring result for one address comparison.
// All components are in [0, 100].
type Score struct {
	Overall      float64 `json:"overall"`
	Street       float64 `json:"street"`
	CityStateZip float64 `json:"city_state_zip"`
}

// Scorer computes fuzzy address-similarity scores. Pure and deterministic:
// identical inputs always yield identical scores, which is what makes
// permanent caching of the results valid.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer with the given weights and fallback.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score compares a pharmacy's reference address against a search result's
// reported address. Street line and city/state/zip are scored independently
// with a token-set ratio (robust to word reordering and minor edits), then
// combined as overall = streetWeight*street + cszWeight*csz.
//
// A candidate with no street line still gets a city/state/zip score; its
// street component is replaced by the configured fallback rather than zero,
// reflecting partial information instead of a mismatch.
func (s *Scorer) Score(ref, cand model.AddressParts) (Score, error) {
	refStreet := Normalize(ref.Street)
	refCSZ := NormalizeCityStateZip(ref.City, ref.State, ref.Zip)
	if refStreet == "" && refCSZ == "" {
		return Score{}, eris.New("address: reference address is empty")
	}

	candStreet := Normalize(cand.Street)
	candCSZ := NormalizeCityStateZip(cand.City, cand.State, cand.Zip)
	if candStreet == "" && candCSZ == "" {
		return Score{}, eris.New("address: candidate address is empty")
	}

	csz := float64(fuzzy.TokenSetRatio(refCSZ, candCSZ))

	var street float64
	if candStreet == "" {
		street = s.cfg.NoStreetFallback
	} else {
		street = float64(fuzzy.TokenSetRatio(refStreet, candStreet))
	}

	overall := s.cfg.StreetWeight*street + s.cfg.CityStateZipWeight*csz

	return Score{
		Overall:      round2(overall),
		Street:       street,
		CityStateZip: csz,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
