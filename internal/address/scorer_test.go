package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/model"
)

func testScorer() *Scorer {
	return NewScorer(config.ScoringConfig{
		StreetWeight:       0.70,
		CityStateZipWeight: 0.30,
		NoStreetFallback:   60,
	})
}

func TestScorer_IdenticalAddresses(t *testing.T) {
	s := testScorer()
	addr := model.AddressParts{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}

	got, err := s.Score(addr, model.AddressParts{Street: "123 Main Street", City: "Austin", State: "TX", Zip: "78701"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got.Overall, 95.0)
	assert.InDelta(t, 100, got.Street, 0.001)
	assert.InDelta(t, 100, got.CityStateZip, 0.001)
}

func TestScorer_SameStreetDifferentCity(t *testing.T) {
	s := testScorer()
	ref := model.AddressParts{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}
	cand := model.AddressParts{Street: "123 Main Street", City: "Jacksonville", State: "FL", Zip: "32099"}

	got, err := s.Score(ref, cand)
	require.NoError(t, err)

	// Full street credit, little city/state/zip credit: the weak-match band.
	assert.GreaterOrEqual(t, got.Overall, 60.0)
	assert.Less(t, got.Overall, 85.0)
	assert.InDelta(t, 100, got.Street, 0.001)
	assert.Less(t, got.CityStateZip, 50.0)
}

func TestScorer_UnrelatedAddresses(t *testing.T) {
	s := testScorer()
	ref := model.AddressParts{Street: "456 Pine Ave", City: "Denver", State: "CO", Zip: "80202"}
	cand := model.AddressParts{Street: "9900 Industrial Pkwy", City: "Savannah", State: "GA", Zip: "31401"}

	got, err := s.Score(ref, cand)
	require.NoError(t, err)
	assert.Less(t, got.Overall, 60.0)
}

func TestScorer_NoStreetFallback(t *testing.T) {
	s := testScorer()
	ref := model.AddressParts{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}
	cand := model.AddressParts{City: "Austin", State: "TX", Zip: "78701"}

	got, err := s.Score(ref, cand)
	require.NoError(t, err)

	// Partial information, not a mismatch: the street component falls back
	// to the configured default instead of zero.
	assert.InDelta(t, 60, got.Street, 0.001)
	assert.InDelta(t, 100, got.CityStateZip, 0.001)
	assert.InDelta(t, 0.70*60+0.30*100, got.Overall, 0.001)
}

func TestScorer_Deterministic(t *testing.T) {
	s := testScorer()
	ref := model.AddressParts{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}
	cand := model.AddressParts{Street: "123 Maine Street", City: "Austin", State: "TX", Zip: "78704"}

	first, err := s.Score(ref, cand)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := s.Score(ref, cand)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScorer_RobustToTokenReordering(t *testing.T) {
	s := testScorer()
	ref := model.AddressParts{Street: "123 Main St Suite 4", City: "Austin", State: "TX", Zip: "78701"}
	cand := model.AddressParts{Street: "Suite 4, 123 Main Street", City: "Austin", State: "TX", Zip: "78701"}

	got, err := s.Score(ref, cand)
	require.NoError(t, err)
	assert.InDelta(t, 100, got.Street, 0.001)
}

func TestScorer_EmptyInputsAreErrors(t *testing.T) {
	s := testScorer()
	addr := model.AddressParts{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"}

	_, err := s.Score(model.AddressParts{}, addr)
	assert.Error(t, err)

	_, err = s.Score(addr, model.AddressParts{})
	assert.Error(t, err)
}
