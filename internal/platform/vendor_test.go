package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchVendor_Exact(t *testing.T) {
	m := MatchVendor([]string{"Other", "glow25"}, "Glow25")
	assert.True(t, m.Found)
	assert.Equal(t, "glow25", m.Vendor)
	assert.Equal(t, VendorExactConfidence, m.Confidence)
}

func TestMatchVendor_NormalizedBeatsSubstring(t *testing.T) {
	// "Glow25 GmbH" contains "Glow25" as a substring, but the normalized
	// equality tier is more reliable and must win.
	m := MatchVendor([]string{"Glow25 GmbH"}, "Glow25")
	assert.True(t, m.Found)
	assert.Equal(t, "Glow25 GmbH", m.Vendor)
	assert.Equal(t, VendorNormalizedConfidence, m.Confidence)
}

func TestMatchVendor_Substring(t *testing.T) {
	m := MatchVendor([]string{"Glow25 Collagen Series"}, "Glow25")
	assert.True(t, m.Found)
	assert.Equal(t, VendorSubstringConfidence, m.Confidence)
}

func TestMatchVendor_NoMatch(t *testing.T) {
	m := MatchVendor([]string{"Acme", "Globex"}, "Glow25")
	assert.False(t, m.Found)
	assert.Zero(t, m.Confidence)
}

func TestMatchVendor_EmptyInputs(t *testing.T) {
	assert.False(t, MatchVendor(nil, "Glow25").Found)
	assert.False(t, MatchVendor([]string{"Glow25"}, "").Found)
}

func TestNormalizeVendor(t *testing.T) {
	assert.Equal(t, "glow25", normalizeVendor("Glow25 GmbH"))
	assert.Equal(t, "glow25", normalizeVendor("GLOW-25"))
	assert.Equal(t, "acmebeauty", normalizeVendor("Acme Beauty Ltd."))
}
