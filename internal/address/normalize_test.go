package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"case folding", "123 MAIN STREET", "123 main street"},
		{"abbreviation expansion", "123 Main St", "123 main street"},
		{"directional expansion", "500 N Lamar Blvd", "500 north lamar boulevard"},
		{"punctuation stripped", "123 Main St., Ste. 4", "123 main street unit 4"},
		{"hash is a unit marker", "123 Main St #4", "123 main street unit 4"},
		{"apt and suite collapse to unit", "9 Oak Ave Apt 2B", "9 oak avenue unit 2b"},
		{"diacritics folded", "12 José Martí Blvd", "12 jose marti boulevard"},
		{"whitespace collapsed", "  123   Main\tSt ", "123 main street"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_EquivalentSpellings(t *testing.T) {
	// The point of normalization: these must collide.
	assert.Equal(t, Normalize("123 Main St"), Normalize("123 MAIN STREET"))
	assert.Equal(t, Normalize("500 W 5th Ave, Apt 9"), Normalize("500 West 5th Avenue #9"))
}

func TestNormalizeCityStateZip(t *testing.T) {
	assert.Equal(t, "austin tx 78701", NormalizeCityStateZip("Austin", "TX", "78701"))
	assert.Equal(t, "austin tx", NormalizeCityStateZip("Austin", "TX", ""))
	assert.Equal(t, "", NormalizeCityStateZip("", "", ""))
}
