package verify

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/store"
	"github.com/tobias/adscout/internal/types"
)

// session carries the per-domain state shared by the cascade strategies. The
// homepage is fetched at most once, on first use, and the result (or its
// failure) is reused by every later step.
type session struct {
	domain     string
	profile    *types.BrandProfile
	evidence   *Evidence
	thresholds Thresholds
	scheme     string
	fetchOpts  *fetch.Options
	cache      PageCache
	trail      []string

	homepageFetched bool
	homepageResult  *fetch.Result
	homepageErr     error
}

func newSession(domain string, profile *types.BrandProfile, ev *Evidence, th Thresholds) *session {
	return &session{
		domain:     domain,
		profile:    profile,
		evidence:   ev,
		thresholds: th,
		scheme:     "https",
	}
}

func (s *session) homepageURL() string {
	return s.scheme + "://" + s.domain
}

// homepage fetches the candidate's homepage once. Subsequent calls return the
// cached result, including a cached failure.
func (s *session) homepage(ctx context.Context) (*fetch.Result, error) {
	if s.homepageFetched {
		return s.homepageResult, s.homepageErr
	}
	s.homepageFetched = true

	if s.cache != nil {
		if page, err := s.cache.GetPage(ctx, s.homepageURL()); err == nil && page != nil {
			chain := []string{page.URL}
			if page.FinalURL != "" && page.FinalURL != page.URL {
				chain = append(chain, page.FinalURL)
			}
			s.homepageResult = &fetch.Result{
				URL:        page.URL,
				FinalURL:   page.FinalURL,
				Chain:      chain,
				HTML:       page.HTML,
				StatusCode: http.StatusOK,
			}
			return s.homepageResult, nil
		}
	}

	res, err := fetch.URL(ctx, s.homepageURL(), s.fetchOpts)
	if err != nil && res == nil {
		s.homepageErr = err
		return nil, err
	}
	// A non-2xx terminal page still carries HTML and a redirect chain worth
	// inspecting.
	s.homepageResult = res
	if s.cache != nil && err == nil && res != nil {
		_ = s.cache.PutPage(ctx, &store.CachedPage{URL: res.URL, FinalURL: res.FinalURL, HTML: res.HTML})
	}
	return res, nil
}

// isBrandDomain reports whether host is the brand's domain or a subdomain of
// it.
func (s *session) isBrandDomain(host string) bool {
	if s.profile.Domain == "" || host == "" {
		return false
	}
	return fetch.SameDomain(host, s.profile.Domain)
}

// aliasInHost reports whether any sufficiently long normalized brand alias is
// a substring of the (normalized) host.
func (s *session) aliasInHost(host string) bool {
	if host == "" {
		return false
	}
	norm := types.NormalizeName(host)
	for _, alias := range s.profile.NormalizedAliases(s.thresholds.MinAliasLen) {
		if strings.Contains(norm, alias) {
			return true
		}
	}
	return false
}

// contentMatch runs the brand-domain and alias content checks against html,
// returning a result at the given confidences or nil.
func (s *session) contentMatch(html string, linkConf, mentionConf float64) *types.VerificationResult {
	if html == "" {
		return nil
	}
	lower := strings.ToLower(html)
	if s.profile.Domain != "" && strings.Contains(lower, s.profile.Domain) {
		return &types.VerificationResult{
			Match:      true,
			Kind:       types.MatchContentLink,
			Confidence: linkConf,
			ShopDomain: s.profile.Domain,
		}
	}
	norm := types.NormalizeName(lower)
	for _, alias := range s.profile.NormalizedAliases(s.thresholds.MinContentAliasLen) {
		if strings.Contains(norm, alias) {
			return &types.VerificationResult{
				Match:      true,
				Kind:       types.MatchContentMention,
				Confidence: mentionConf,
			}
		}
	}
	return nil
}

// landingURLs returns the domain's observed full URLs ordered by occurrence
// count. With nonRootOnly set, URLs without a meaningful path are skipped.
func (s *session) landingURLs(nonRootOnly bool, limit int) []string {
	urls := make([]string, 0, len(s.evidence.FullURLs))
	for u := range s.evidence.FullURLs {
		if nonRootOnly && !hasNonRootPath(u) {
			continue
		}
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if s.evidence.FullURLs[urls[i]] != s.evidence.FullURLs[urls[j]] {
			return s.evidence.FullURLs[urls[i]] > s.evidence.FullURLs[urls[j]]
		}
		return urls[i] < urls[j]
	})
	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls
}

func hasNonRootPath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Path != "" && u.Path != "/"
}
