// Package aggregate turns raw ad records into a brand profile and a ranked
// set of candidate domains for verification.
package aggregate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tobias/adscout/internal/extractor"
	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/types"
)

// urlInTextRe finds full URLs inside creative text.
var urlInTextRe = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// ResolveBrandDomain picks the brand's primary domain by plurality vote over
// the link captions of ads matching the brand name. Returns "" when no
// caption yields a usable domain.
func ResolveBrandDomain(ads []types.AdRecord) string {
	votes := make(map[string]int)
	for i := range ads {
		d := CaptionDomain(ads[i].LinkCaption)
		if d == "" || extractor.IsPlatformDomain(d) {
			continue
		}
		votes[d]++
	}
	best := ""
	for d, n := range votes {
		if n > votes[best] || (n == votes[best] && (best == "" || d < best)) {
			best = d
		}
	}
	return best
}

// CaptionDomain extracts a domain from an ad's link caption, which is either
// a bare (often uppercased) hostname like "GLOW25.DE" or a full URL.
func CaptionDomain(caption string) string {
	return fetch.Domain(caption)
}

// BuildProfile assembles the brand profile from the brand-name search
// results. Aliases come from the brand name itself and from splitting the
// official pages' names on common separators.
func BuildProfile(brandName string, ads []types.AdRecord, domain string) *types.BrandProfile {
	profile := &types.BrandProfile{
		Name:   brandName,
		Domain: domain,
	}
	profile.AddAlias(brandName)
	profile.AddAlias(types.NormalizeName(brandName))
	if domain != "" {
		if i := strings.IndexByte(domain, '.'); i > 0 {
			profile.AddAlias(domain[:i])
		}
		profile.AddAlias(domain)
	}

	payers := make(map[string]bool)
	beneficiaries := make(map[string]bool)

	for i := range ads {
		ad := &ads[i]
		if CaptionDomain(ad.LinkCaption) != domain || domain == "" {
			continue
		}
		// Pages that caption the brand's own domain are its official pages.
		if ad.PageID != "" && !profile.HasOfficialPage(ad.PageID) {
			profile.OfficialPageIDs = append(profile.OfficialPageIDs, ad.PageID)
		}
		for _, part := range splitPageName(ad.PageName) {
			profile.AddAlias(part)
		}
		if ad.PayerName != "" && !payers[ad.PayerName] {
			payers[ad.PayerName] = true
			profile.PayerNames = append(profile.PayerNames, ad.PayerName)
		}
		if ad.Beneficiary != "" && !beneficiaries[ad.Beneficiary] {
			beneficiaries[ad.Beneficiary] = true
			profile.Beneficiaries = append(profile.Beneficiaries, ad.Beneficiary)
		}
	}
	return profile
}

// splitPageName derives alias candidates from a page name by splitting on
// separators like " - " and " | ". "Glow25 - Beauty von innen" yields
// "glow25" and "beauty von innen".
func splitPageName(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	parts := []string{name}
	for _, sep := range []string{" - ", " | ", " – ", " — ", ": "} {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= 3 {
			out = append(out, p)
		}
	}
	return out
}

// Aggregate merges ad records from all searches into per-domain candidates,
// excluding the brand's own domain and platform/social domains. Ads from a
// page that also advertises the brand's own domain mark their domains as
// priority candidates.
func Aggregate(ads []types.AdRecord, profile *types.BrandProfile) []*types.CandidateDomain {
	byDomain := make(map[string]*types.CandidateDomain)
	pagesOnBrandDomain := make(map[string]bool)

	for i := range ads {
		ad := &ads[i]
		for _, d := range adDomains(ad) {
			if d.domain == profile.Domain || fetch.SameDomain(d.domain, profile.Domain) {
				pagesOnBrandDomain[ad.PageID] = true
			}
		}
	}

	for i := range ads {
		ad := &ads[i]
		for _, d := range adDomains(ad) {
			if d.domain == "" || extractor.IsPlatformDomain(d.domain) {
				continue
			}
			if profile.Domain != "" && fetch.SameDomain(d.domain, profile.Domain) {
				continue
			}
			cand, ok := byDomain[d.domain]
			if !ok {
				cand = &types.CandidateDomain{Domain: d.domain}
				byDomain[d.domain] = cand
			}
			cand.AddPageID(ad.PageID)
			cand.AdCount++
			if d.fullURL != "" {
				cand.AddURL(d.fullURL)
			}
			if pagesOnBrandDomain[ad.PageID] {
				cand.Priority = true
			}
		}
	}

	out := make([]*types.CandidateDomain, 0, len(byDomain))
	for _, c := range byDomain {
		out = append(out, c)
	}
	SortCandidates(out)
	return out
}

// SortCandidates orders candidates for verification: priority domains first,
// then by ad count, then alphabetically for stability.
func SortCandidates(cands []*types.CandidateDomain) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Priority != cands[j].Priority {
			return cands[i].Priority
		}
		if cands[i].AdCount != cands[j].AdCount {
			return cands[i].AdCount > cands[j].AdCount
		}
		return cands[i].Domain < cands[j].Domain
	})
}

// adDomain is one domain reference found in an ad, with the full URL when
// the reference was a complete link rather than a bare caption.
type adDomain struct {
	domain  string
	fullURL string
}

// adDomains extracts every domain an ad references: the link caption plus
// any full URLs embedded in the creative text.
func adDomains(ad *types.AdRecord) []adDomain {
	var out []adDomain
	seen := make(map[string]bool)

	add := func(domain, fullURL string) {
		if domain == "" {
			return
		}
		key := domain + "|" + fullURL
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, adDomain{domain: domain, fullURL: fullURL})
	}

	if caption := strings.TrimSpace(ad.LinkCaption); caption != "" {
		if strings.Contains(caption, "://") {
			add(fetch.Domain(caption), caption)
		} else {
			add(CaptionDomain(caption), "")
		}
	}
	for _, raw := range urlInTextRe.FindAllString(ad.CreativeText(), 16) {
		raw = strings.TrimRight(raw, ".,;!")
		add(fetch.Domain(raw), raw)
	}
	return out
}
