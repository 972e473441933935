// Package types defines the shared data model for the ad discovery pipeline.
package types

import "strings"

// BrandProfile holds everything the pipeline knows about the brand under
// investigation. It is built once during domain resolution; only the alias
// set grows afterwards as enrichment stages discover new spellings.
type BrandProfile struct {
	Name            string   `json:"name"`
	Aliases         []string `json:"aliases"`
	Domain          string   `json:"domain"`
	Platform        string   `json:"platform,omitempty"`
	Vendor          string   `json:"vendor,omitempty"`
	OfficialPageIDs []string `json:"official_page_ids"`
	PayerNames      []string `json:"payer_names,omitempty"`
	Beneficiaries   []string `json:"beneficiaries,omitempty"`
}

// AddAlias records a new alias spelling, ignoring duplicates and blanks.
func (b *BrandProfile) AddAlias(alias string) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return
	}
	for _, a := range b.Aliases {
		if a == alias {
			return
		}
	}
	b.Aliases = append(b.Aliases, alias)
}

// HasOfficialPage reports whether pageID belongs to the brand's own pages.
func (b *BrandProfile) HasOfficialPage(pageID string) bool {
	for _, id := range b.OfficialPageIDs {
		if id == pageID {
			return true
		}
	}
	return false
}

// NormalizedAliases returns the alias set with separators stripped, filtered
// to entries of at least minLen runes. Used for fuzzy domain and content
// matching where "glow 25" must match "glow25.de".
func (b *BrandProfile) NormalizedAliases(minLen int) []string {
	out := make([]string, 0, len(b.Aliases))
	for _, a := range b.Aliases {
		n := NormalizeName(a)
		if len([]rune(n)) >= minLen {
			out = append(out, n)
		}
	}
	return out
}

// NormalizeName lowercases a name and strips separator characters so that
// "Glow 25 - Shop" and "glow25" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case ' ', '-', '_', '.', '|', '/', '\'', '"', ',':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
