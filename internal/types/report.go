package types

import "time"

// PageMatch is one advertiser page in the final report, merged from all
// verification results that named the page. Deduplicated by page ID; the
// highest-confidence match kind wins.
type PageMatch struct {
	PageID     string    `json:"page_id"`
	PageName   string    `json:"page_name,omitempty"`
	Kind       MatchKind `json:"kind"`
	Confidence float64   `json:"confidence"`
	Domains    []string  `json:"domains"`
	AdCount    int       `json:"ad_count"`
}

// ScanStats summarizes how much work a run performed. UniqueDomainsChecked
// can be lower than DomainsDiscovered when a deadline truncated verification.
type ScanStats struct {
	AdsScanned           int            `json:"ads_scanned"`
	DomainsDiscovered    int            `json:"domains_discovered"`
	UniqueDomainsChecked int            `json:"unique_domains_checked"`
	MatchesFound         int            `json:"matches_found"`
	MethodCounts         map[string]int `json:"method_counts,omitempty"`
	StagesSkipped        []string       `json:"stages_skipped,omitempty"`
	Duration             time.Duration  `json:"duration_ns"`
}

// DiscoveryReport is the single output of a discovery run. Immutable once
// returned. Success is false only for malformed input or when no brand
// domain could be resolved; time exhaustion still yields Success true with
// partial lists.
type DiscoveryReport struct {
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Brand           *BrandProfile `json:"brand,omitempty"`
	OfficialPages   []PageMatch   `json:"official_pages,omitempty"`
	ThirdPartyPages []PageMatch   `json:"third_party_pages,omitempty"`
	PresellDomains  []string      `json:"presell_domains,omitempty"`
	RedirectDomains []string      `json:"redirect_domains,omitempty"`
	ShopDomains     []string      `json:"shop_domains,omitempty"`
	TopLandingPages []string      `json:"top_landing_pages,omitempty"`
	Keywords        []string      `json:"keywords,omitempty"`
	Stats           ScanStats     `json:"stats"`
}
