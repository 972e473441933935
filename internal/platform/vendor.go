package platform

import (
	"context"
	"strings"

	"github.com/tobias/adscout/internal/types"
)

// Vendor match tier confidences. Ordered by reliability: an exact vendor
// string beats a normalized equality, which beats loose containment.
const (
	VendorExactConfidence      = 0.95
	VendorNormalizedConfidence = 0.85
	VendorSubstringConfidence  = 0.80
)

// legalSuffixes are company-form suffixes stripped before normalized
// comparison, so that vendor "Glow25 GmbH" matches brand "Glow25".
var legalSuffixes = []string{
	"gmbh", "ag", "ug", "kg", "ohg", "gbr", "ltd", "llc", "inc", "co", "corp",
	"bv", "sarl", "sas", "oy", "ab", "aps",
}

// VendorMatch is the outcome of testing a brand name against a storefront's
// vendor list.
type VendorMatch struct {
	Found      bool    `json:"found"`
	Vendor     string  `json:"vendor,omitempty"`
	Confidence float64 `json:"confidence"`
}

// VendorMatches probes domain for its product vendors and tests brandName
// against each one.
func (d *Detector) VendorMatches(ctx context.Context, domain, brandName string) (*VendorMatch, error) {
	det, err := d.Detect(ctx, domain)
	if err != nil {
		return &VendorMatch{}, err
	}
	return MatchVendor(det.Vendors, brandName), nil
}

// MatchVendor compares brandName against each vendor using three tiers and
// returns the first hit of the highest tier. Tiers, best first: exact
// case-insensitive equality, separator-and-suffix-normalized equality, and
// substring containment in either direction.
func MatchVendor(vendors []string, brandName string) *VendorMatch {
	brand := strings.TrimSpace(brandName)
	if brand == "" || len(vendors) == 0 {
		return &VendorMatch{}
	}
	brandLower := strings.ToLower(brand)
	brandNorm := normalizeVendor(brand)

	for _, v := range vendors {
		if strings.EqualFold(strings.TrimSpace(v), brand) {
			return &VendorMatch{Found: true, Vendor: v, Confidence: VendorExactConfidence}
		}
	}
	for _, v := range vendors {
		if brandNorm != "" && normalizeVendor(v) == brandNorm {
			return &VendorMatch{Found: true, Vendor: v, Confidence: VendorNormalizedConfidence}
		}
	}
	for _, v := range vendors {
		vLower := strings.ToLower(strings.TrimSpace(v))
		if vLower == "" {
			continue
		}
		if strings.Contains(vLower, brandLower) || strings.Contains(brandLower, vLower) {
			return &VendorMatch{Found: true, Vendor: v, Confidence: VendorSubstringConfidence}
		}
	}
	return &VendorMatch{}
}

// normalizeVendor lowercases, strips legal-form suffixes and separators.
func normalizeVendor(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	fields := strings.Fields(lower)
	for len(fields) > 0 {
		last := strings.Trim(fields[len(fields)-1], ".,")
		if !isLegalSuffix(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return types.NormalizeName(strings.Join(fields, " "))
}

func isLegalSuffix(word string) bool {
	for _, s := range legalSuffixes {
		if word == s {
			return true
		}
	}
	return false
}
