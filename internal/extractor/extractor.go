// Package extractor mines HTML and script text for the outbound URL a page
// is funneling its visitors to. Pattern families are tried in strict priority
// order; earlier families are cheaper and markedly more reliable than the
// aggressive fallbacks at the end.
package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// platformDomains are hosts belonging to the ad platform itself or to other
// social networks. Links into these never count as candidate destinations.
var platformDomains = []string{
	"facebook.com",
	"fb.com",
	"fb.me",
	"fbcdn.net",
	"instagram.com",
	"cdninstagram.com",
	"messenger.com",
	"whatsapp.com",
	"wa.me",
	"tiktok.com",
	"youtube.com",
	"youtu.be",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"pinterest.com",
}

// noiseHosts are CDNs, analytics and tag managers that show up in almost any
// page source and never identify an advertiser.
var noiseHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"googleapis.com",
	"gstatic.com",
	"doubleclick.net",
	"googlesyndication.com",
	"cloudflare.com",
	"cloudflareinsights.com",
	"jsdelivr.net",
	"unpkg.com",
	"jquery.com",
	"hotjar.com",
	"klaviyo.com",
	"sentry.io",
	"schema.org",
	"w3.org",
}

var assetExtensions = []string{
	".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg",
	".ico", ".woff", ".woff2", ".ttf", ".eot", ".mp4", ".webm", ".pdf",
}

// ctaVocabulary holds multilingual call-to-action phrases used to recognize
// buy buttons by their visible text.
var ctaVocabulary = []string{
	"buy now", "shop now", "order now", "get yours", "get it now",
	"claim offer", "check availability", "try it", "add to cart",
	"jetzt kaufen", "jetzt bestellen", "jetzt sichern", "zum shop",
	"zum angebot", "hier kaufen", "jetzt testen", "mehr erfahren",
	"acheter", "comprar", "koop nu", "køb nu",
}

var (
	// Platform link shims: l.facebook.com/l.php?u=..., lm.facebook.com and
	// l.instagram.com wrap the real destination in the u parameter.
	wrapperLinkRe   = regexp.MustCompile(`https?://l(?:m)?\.(?:facebook|instagram)\.com/l\.php\?[^\s"'<>]+`)
	wrapperParamRe  = regexp.MustCompile(`[?&]u=([^&\s"'<>]+)`)
	metaRefreshRe   = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']?refresh["']?[^>]*content=["'][^"']*url=([^"'>\s]+)`)
	jsLocationRe    = regexp.MustCompile(`(?i)(?:window\.)?location(?:\.href)?\s*=\s*["'](https?://[^"']+)["']`)
	jsReplaceRe     = regexp.MustCompile(`(?i)location\.replace\(\s*["'](https?://[^"']+)["']\s*\)`)
	scriptJSONKeyRe = regexp.MustCompile(`"(?:link_url|website_url|landing_page(?:_url)?|landing_url|cta_url|destination_url|redirect_url|target_url)"\s*:\s*"((?:https?:|\\/\\/)[^"]+)"`)
	anyURLRe        = regexp.MustCompile(`https://[^\s"'<>\\)]+`)
)

// CandidateURL applies the full pattern cascade to raw HTML and returns the
// first valid outbound URL, or "" when nothing usable was found. sourceURL is
// the page the HTML came from; it is used to reject self-references.
func CandidateURL(html, sourceURL string) string {
	sourceHost := hostOf(sourceURL)

	// Family 1: platform share/redirect wrappers carrying the real URL in a
	// query parameter, possibly double-encoded.
	for _, wrapper := range wrapperLinkRe.FindAllString(html, 8) {
		m := wrapperParamRe.FindStringSubmatch(strings.ReplaceAll(wrapper, "&amp;", "&"))
		if m == nil {
			continue
		}
		if u := decodeWrapped(m[1]); validCandidate(u, sourceHost) {
			return u
		}
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))

	// Family 2: canonical and og:url tags.
	if docErr == nil {
		if u, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok && validCandidate(u, sourceHost) {
			return u
		}
		if u, ok := doc.Find(`meta[property="og:url"]`).Attr("content"); ok && validCandidate(u, sourceHost) {
			return u
		}
	}

	// Family 3: data attributes carrying raw or wrapped URLs.
	if docErr == nil {
		var found string
		doc.Find("[data-url], [data-href], [data-link], [data-redirect], [data-destination]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range []string{"data-url", "data-href", "data-link", "data-redirect", "data-destination"} {
				raw, ok := s.Attr(attr)
				if !ok {
					continue
				}
				u := decodeWrapped(raw)
				if validCandidate(u, sourceHost) {
					found = u
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	// Family 4: well-known JSON keys inside inline scripts.
	for _, m := range scriptJSONKeyRe.FindAllStringSubmatch(html, 8) {
		u := strings.ReplaceAll(m[1], `\/`, `/`)
		if validCandidate(u, sourceHost) {
			return u
		}
	}

	// Family 5: meta-refresh.
	if u := MetaRefreshURL(html); validCandidate(u, sourceHost) {
		return u
	}

	// Family 6: JS redirect idioms.
	if u := JSRedirectURL(html); validCandidate(u, sourceHost) {
		return u
	}

	// Family 7: anchors with CTA text or button-ish classes.
	if docErr == nil {
		if u := ctaAnchor(doc, sourceURL); validCandidate(u, sourceHost) {
			return u
		}
	}

	// Family 8: aggressive fallback over any https:// string.
	return anyExternalURL(html, sourceHost)
}

// MetaRefreshURL returns the target of a meta-refresh tag, or "".
func MetaRefreshURL(html string) string {
	m := metaRefreshRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], `"'`)
}

// JSRedirectURL returns the target of a whitelisted JavaScript redirect
// idiom (window.location assignment or location.replace), or "".
func JSRedirectURL(html string) string {
	if m := jsLocationRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := jsReplaceRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// ctaAnchor scans anchors for call-to-action text or button classes and
// returns the first valid external href, resolved against the page URL.
func ctaAnchor(doc *goquery.Document, sourceURL string) string {
	sourceHost := hostOf(sourceURL)
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !plausibleHref(href) {
			return true
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		class, _ := s.Attr("class")
		class = strings.ToLower(class)

		if !matchesCTAText(text) && !looksLikeButton(class) {
			return true
		}
		if u := absoluteURL(sourceURL, href); validCandidate(u, sourceHost) {
			found = u
			return false
		}
		return true
	})
	return found
}

func matchesCTAText(text string) bool {
	for _, phrase := range ctaVocabulary {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func looksLikeButton(class string) bool {
	for _, marker := range []string{"cta", "btn", "button", "buy", "order"} {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

// anyExternalURL regex-scans for any https:// URL not belonging to the
// platform, noise hosts or static assets, preferring candidates with a
// non-root path.
func anyExternalURL(html, sourceHost string) string {
	var rootOnly string
	for _, raw := range anyURLRe.FindAllString(html, 64) {
		u := strings.TrimRight(raw, ".,;")
		if !validCandidate(u, sourceHost) {
			continue
		}
		if isNoise(u) || isAsset(u) {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil {
			continue
		}
		if parsed.Path != "" && parsed.Path != "/" {
			return u
		}
		if rootOnly == "" {
			rootOnly = u
		}
	}
	return rootOnly
}

// decodeWrapped unescapes a wrapped URL parameter, handling double encoding.
func decodeWrapped(raw string) string {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	if strings.Contains(decoded, "%3A") || strings.Contains(decoded, "%2F") {
		if twice, err := url.QueryUnescape(decoded); err == nil {
			decoded = twice
		}
	}
	return decoded
}

// validCandidate reports whether raw is an absolute http(s) URL pointing
// outside the ad platform and outside the source page's own host.
func validCandidate(raw, sourceHost string) bool {
	if !plausibleHref(raw) {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Host)
	if IsPlatformDomain(host) {
		return false
	}
	if sourceHost != "" && strings.TrimPrefix(host, "www.") == strings.TrimPrefix(sourceHost, "www.") {
		return false
	}
	return true
}

// plausibleHref rejects pseudo-links before any parsing.
func plausibleHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	for _, p := range []string{"javascript:", "mailto:", "tel:", "sms:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	return true
}

// IsPlatformDomain reports whether host belongs to the ad platform or another
// social network.
func IsPlatformDomain(host string) bool {
	host = strings.ToLower(host)
	for _, d := range platformDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isNoise(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Host)
	for _, d := range noiseHosts {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isAsset(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return true
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// absoluteURL resolves href against base and returns "" when the result is
// not absolute.
func absoluteURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	hrefURL, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(hrefURL)
	if resolved.Scheme == "" || resolved.Host == "" {
		return ""
	}
	return resolved.String()
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
