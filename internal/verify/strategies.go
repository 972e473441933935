package verify

import (
	"context"
	"net/url"
	"strings"

	"github.com/tobias/adscout/internal/extractor"
	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/platform"
	"github.com/tobias/adscout/internal/presell"
	"github.com/tobias/adscout/internal/resolver"
	"github.com/tobias/adscout/internal/types"
)

// maxPresellURLs bounds how many landing URLs the presell step tracks beyond
// the homepage.
const maxPresellURLs = 3

// maxLandingFetches bounds how many landing pages the landing-URL step fetches.
const maxLandingFetches = 2

// directStrategy matches when the candidate is the brand domain itself.
type directStrategy struct{}

func (directStrategy) Name() string { return "direct" }

func (directStrategy) Attempt(_ context.Context, s *session) (*types.VerificationResult, error) {
	if !s.isBrandDomain(s.domain) {
		return nil, nil
	}
	return &types.VerificationResult{
		Match:      true,
		Kind:       types.MatchDirect,
		Confidence: s.thresholds.Direct,
		ShopDomain: s.profile.Domain,
	}, nil
}

// redirectStrategy fetches the candidate homepage with redirects followed and
// matches when the final domain is the brand's or contains a brand alias.
// Client-side redirects hiding in the terminal page body are chased through
// the resolver.
type redirectStrategy struct {
	resolver *resolver.Resolver
}

func (redirectStrategy) Name() string { return "redirect" }

func (r redirectStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	page, err := s.homepage(ctx)
	if err != nil || page == nil {
		return nil, err
	}

	finalDomain := fetch.Domain(page.FinalURL)
	if finalDomain != s.domain && (s.isBrandDomain(finalDomain) || s.aliasInHost(finalDomain)) {
		return &types.VerificationResult{
			Match:      true,
			Kind:       types.MatchRedirect,
			Confidence: s.thresholds.Redirect,
			ShopDomain: finalDomain,
			Chain:      page.Chain,
		}, nil
	}

	// No HTTP redirect to the brand; the page itself may still redirect via
	// meta-refresh or JavaScript.
	next := extractor.MetaRefreshURL(page.HTML)
	if next == "" {
		next = extractor.JSRedirectURL(page.HTML)
	}
	if next == "" {
		return nil, nil
	}
	resolved := r.resolver.Resolve(ctx, absoluteAgainst(page.FinalURL, next))
	fd := resolved.FinalDomain()
	if s.isBrandDomain(fd) || s.aliasInHost(fd) {
		return &types.VerificationResult{
			Match:      true,
			Kind:       types.MatchRedirect,
			Confidence: s.thresholds.Redirect,
			ShopDomain: fd,
			Chain:      append(page.Chain, resolved.Chain...),
		}, nil
	}
	return nil, nil
}

// vendorStrategy tests the brand name against the candidate storefront's
// public vendor list when the homepage is recognizably a storefront.
type vendorStrategy struct {
	detector *platform.Detector
}

func (vendorStrategy) Name() string { return "vendor" }

func (v vendorStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	page, err := s.homepage(ctx)
	if err != nil || page == nil {
		return nil, err
	}
	if platform.SniffPlatform(page.HTML) == platform.Unknown {
		return nil, nil
	}
	vm, err := v.detector.VendorMatches(ctx, s.domain, s.profile.Name)
	if err != nil {
		return nil, err
	}
	if !vm.Found {
		return nil, nil
	}
	return &types.VerificationResult{
		Match:      true,
		Kind:       types.MatchShopifyVendor,
		Confidence: vm.Confidence,
		ShopDomain: s.domain,
		Vendor:     vm.Vendor,
	}, nil
}

// contentStrategy looks for the literal brand domain or a brand alias in the
// already-fetched homepage HTML.
type contentStrategy struct{}

func (contentStrategy) Name() string { return "content" }

func (contentStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	page, err := s.homepage(ctx)
	if err != nil || page == nil {
		return nil, err
	}
	return s.contentMatch(page.HTML, s.thresholds.ContentLink, s.thresholds.ContentMention), nil
}

// presellStrategy tracks CTA chains from the homepage and the most frequent
// deep landing URLs. A chain ending on the brand is a presell match; a chain
// ending on another storefront that sells the brand is a checkout match.
type presellStrategy struct {
	tracker  *presell.Tracker
	detector *platform.Detector
}

func (presellStrategy) Name() string { return "presell" }

func (p presellStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	pages := append([]string{s.homepageURL()}, s.landingURLs(true, maxPresellURLs)...)

	var lastErr error
	for _, pageURL := range pages {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tracked, err := p.tracker.Track(ctx, pageURL)
		if err != nil {
			lastErr = err
			continue
		}
		if tracked.CTAURL == "" || tracked.ShopDomain == "" {
			continue
		}
		if s.isBrandDomain(tracked.ShopDomain) || s.aliasInHost(tracked.ShopDomain) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchPresellCTA,
				Confidence: s.thresholds.PresellCTA,
				ShopDomain: tracked.ShopDomain,
				Chain:      tracked.Chain,
			}, nil
		}
		// The CTA lands on a third storefront; check whether that shop sells
		// the brand.
		vm, err := p.detector.VendorMatches(ctx, tracked.ShopDomain, s.profile.Name)
		if err != nil {
			lastErr = err
			continue
		}
		if vm.Found {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchCheckout,
				Confidence: vm.Confidence,
				ShopDomain: tracked.ShopDomain,
				Vendor:     vm.Vendor,
				Chain:      tracked.Chain,
			}, nil
		}
	}
	return nil, lastErr
}

// landingURLStrategy inspects the full landing URLs already harvested from ad
// captions. The URL set itself is checked first at no network cost; only then
// are a couple of deep pages fetched for content checks at reduced confidence.
type landingURLStrategy struct{}

func (landingURLStrategy) Name() string { return "landing_urls" }

func (landingURLStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	all := s.landingURLs(false, 0)

	for _, raw := range all {
		d := fetch.Domain(raw)
		if s.isBrandDomain(d) || s.aliasInHost(d) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchRedirect,
				Confidence: s.thresholds.LandingDomain,
				ShopDomain: d,
				Chain:      []string{raw},
			}, nil
		}
	}
	for _, raw := range all {
		if aliasInPath(raw, s.profile.NormalizedAliases(s.thresholds.MinContentAliasLen)) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchContentLink,
				Confidence: s.thresholds.LandingPathAlias,
				Chain:      []string{raw},
			}, nil
		}
	}

	var lastErr error
	for _, raw := range s.landingURLs(true, maxLandingFetches) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page, err := fetch.URL(ctx, raw, s.fetchOpts)
		if err != nil && page == nil {
			lastErr = err
			continue
		}
		if res := s.contentMatch(page.HTML, s.thresholds.LandingContent, s.thresholds.LandingMention); res != nil {
			res.Chain = []string{raw}
			return res, nil
		}
	}
	return nil, lastErr
}

// dualDomainStrategy matches when a creative that advertised this domain also
// references the brand domain. Two domains co-advertised by the same ad is
// strong evidence of affiliation.
type dualDomainStrategy struct{}

func (dualDomainStrategy) Name() string { return "dual_domain" }

func (dualDomainStrategy) Attempt(_ context.Context, s *session) (*types.VerificationResult, error) {
	if s.profile.Domain == "" {
		return nil, nil
	}
	for i := range s.evidence.Ads {
		ad := &s.evidence.Ads[i]
		text := strings.ToLower(ad.LinkCaption + " " + ad.CreativeText())
		if strings.Contains(text, s.profile.Domain) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchContentLink,
				Confidence: s.thresholds.DualDomain,
				ShopDomain: s.profile.Domain,
			}, nil
		}
	}
	return nil, nil
}

// renderedStrategy is the last resort: render the best-known URL with
// JavaScript execution, then scan rendered anchors, rendered text, and
// finally CTA-pattern links resolved through the redirect chain.
type renderedStrategy struct {
	renderer Renderer
	resolver *resolver.Resolver
}

func (renderedStrategy) Name() string { return "rendered" }

func (r renderedStrategy) Attempt(ctx context.Context, s *session) (*types.VerificationResult, error) {
	target := s.homepageURL()
	if deep := s.landingURLs(true, 1); len(deep) > 0 {
		target = deep[0]
	}
	rendered, err := r.renderer.Render(ctx, target)
	if err != nil {
		return nil, err
	}

	for _, href := range rendered.Links {
		d := fetch.Domain(href)
		if s.isBrandDomain(d) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchContentLink,
				Confidence: s.thresholds.RenderedAnchor,
				ShopDomain: d,
				Chain:      []string{target, href},
			}, nil
		}
	}

	lower := strings.ToLower(rendered.HTML)
	if s.profile.Domain != "" && strings.Contains(lower, s.profile.Domain) {
		return &types.VerificationResult{
			Match:      true,
			Kind:       types.MatchContentLink,
			Confidence: s.thresholds.RenderedText,
			ShopDomain: s.profile.Domain,
		}, nil
	}
	norm := types.NormalizeName(lower)
	for _, alias := range s.profile.NormalizedAliases(s.thresholds.MinContentAliasLen) {
		if strings.Contains(norm, alias) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchContentMention,
				Confidence: s.thresholds.RenderedAlias,
			}, nil
		}
	}

	for _, href := range ctaLinks(rendered.Links) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resolved := r.resolver.Resolve(ctx, href)
		fd := resolved.FinalDomain()
		if s.isBrandDomain(fd) || s.aliasInHost(fd) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchRedirect,
				Confidence: s.thresholds.RenderedCTA,
				ShopDomain: fd,
				Chain:      append([]string{target}, resolved.Chain...),
			}, nil
		}
	}
	return nil, nil
}

// ctaTokens mark a link as an outbound call-to-action.
var ctaTokens = []string{"shop", "buy", "checkout", "kaufen", "bestellen", "/go/", "/out/", "/visit/", "redirect", "track"}

// ctaLinks filters anchors down to CTA-looking ones, capped so a link farm
// cannot stall the cascade.
func ctaLinks(links []string) []string {
	var out []string
	for _, href := range links {
		lower := strings.ToLower(href)
		for _, token := range ctaTokens {
			if strings.Contains(lower, token) {
				out = append(out, href)
				break
			}
		}
		if len(out) >= 5 {
			break
		}
	}
	return out
}

// aliasInPath reports whether a URL's path contains any normalized alias.
func aliasInPath(raw string, aliases []string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return false
	}
	norm := types.NormalizeName(strings.ToLower(u.Path))
	for _, alias := range aliases {
		if strings.Contains(norm, alias) {
			return true
		}
	}
	return false
}

// absoluteAgainst resolves a possibly-relative redirect target against the
// page it was found on.
func absoluteAgainst(base, target string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return target
	}
	targetURL, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return target
	}
	return baseURL.ResolveReference(targetURL).String()
}
