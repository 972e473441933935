package types

// MatchKind enumerates the verification method that produced a match. The
// kinds mirror the verification cascade; earlier kinds come from cheaper and
// more reliable checks.
type MatchKind string

const (
	// MatchDirect means the candidate domain is the brand domain itself.
	MatchDirect MatchKind = "direct"
	// MatchRedirect means the candidate redirects to the brand domain.
	MatchRedirect MatchKind = "redirect"
	// MatchShopifyVendor means the candidate is a storefront whose product
	// vendor field names the brand.
	MatchShopifyVendor MatchKind = "shopify_vendor"
	// MatchContentLink means the candidate's content contains the literal
	// brand domain.
	MatchContentLink MatchKind = "content_link"
	// MatchContentMention means the candidate's content contains a brand alias.
	MatchContentMention MatchKind = "content_match"
	// MatchPresellCTA means a presell page's call-to-action resolves to the brand.
	MatchPresellCTA MatchKind = "presell_cta"
	// MatchCheckout means a CTA chain ends on a storefront selling the brand.
	MatchCheckout MatchKind = "checkout_match"
	// MatchNone means the cascade was exhausted without a match.
	MatchNone MatchKind = "none"
)

// VerificationResult is the outcome of running the verification cascade for
// one candidate domain. Exactly one is produced per candidate.
type VerificationResult struct {
	Domain     string    `json:"domain"`
	Match      bool      `json:"match"`
	Kind       MatchKind `json:"kind"`
	Confidence float64   `json:"confidence"`
	ShopDomain string    `json:"shop_domain,omitempty"`
	Vendor     string    `json:"vendor,omitempty"`
	Chain      []string  `json:"chain,omitempty"`
	PageIDs    []string  `json:"page_ids,omitempty"`
	AdCount    int       `json:"ad_count,omitempty"`
	// Trail lists the cascade steps attempted, in order, including the one
	// that matched. Kept for debugging failed verifications without a re-run.
	Trail []string `json:"trail,omitempty"`
}
