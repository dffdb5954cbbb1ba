package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmscope/license-verify/internal/model"
)

const seedYAML = `
pharmacies:
  tag: test-pharm
  rows:
    - name: Test Pharmacy A
      address: 123 Main St
      city: Austin
      state: TX
      zip: "78701"
      claimed_licenses: [TX, FL]
states:
  tag: test-states
  rows:
    - search_name: Test Pharmacy A
      search_state: TX
      license_number: TX-100
      license_status: Active
      address: 123 Main Street
      city: Austin
      state: TX
      zip: "78701"
      search_timestamp: 2026-08-01T12:00:00Z
    - search_name: Test Pharmacy A
      search_state: FL
      result_status: no_results_found
validated:
  tag: test-validated
  rows:
    - pharmacy_name: Test Pharmacy A
      state_code: TX
      license_number: TX-100
      override_type: present
      validated_by: reviewer
      snapshot:
        license_status: Active
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	seed, err := Load(writeSeed(t, seedYAML))
	require.NoError(t, err)

	require.NotNil(t, seed.Pharmacies)
	assert.Equal(t, "test-pharm", seed.Pharmacies.Tag)

	pharmacies := seed.PharmacyRows()
	require.Len(t, pharmacies, 1)
	assert.Equal(t, []string{"TX", "FL"}, pharmacies[0].ClaimedLicenses)

	results := seed.SearchResultRows()
	require.Len(t, results, 2)
	assert.Equal(t, "TX-100", *results[0].LicenseNumber)
	assert.Equal(t, model.ResultsFound, results[0].ResultStatus)
	assert.False(t, results[0].SearchTimestamp.IsZero())

	// Defaults: missing status is results_found unless stated, missing
	// timestamp is filled with now.
	assert.Equal(t, model.NoResultsFound, results[1].ResultStatus)
	assert.Nil(t, results[1].LicenseNumber)
	assert.False(t, results[1].SearchTimestamp.IsZero())

	overrides := seed.OverrideRows()
	require.Len(t, overrides, 1)
	assert.Equal(t, model.OverridePresent, overrides[0].Type)
	assert.Equal(t, "Active", overrides[0].Snapshot.LicenseStatus)
	assert.False(t, overrides[0].ValidatedAt.IsZero())
}

func TestLoad_EmptySeedRejected(t *testing.T) {
	_, err := Load(writeSeed(t, "# nothing here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset sections")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
