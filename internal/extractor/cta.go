package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ctaPatterns are applied in priority order by CTAURL. Each pattern family is
// tried across the whole document before falling to the next.
var (
	onclickRe   = regexp.MustCompile(`(?i)(?:window\.open|location(?:\.href)?\s*=)\s*\(?["']([^"']+)["']`)
	jsVarRe     = regexp.MustCompile(`(?i)(?:var|let|const)\s+(?:redirect_?url|target_?url|cta_?url|offer_?url)\s*=\s*["'](https?://[^"']+)["']`)
	jsonCTARe   = regexp.MustCompile(`"(?:redirect|redirect_url|offer_url|cta)"\s*:\s*"((?:https?:|\\/\\/)[^"]+)"`)
	buyVocab    = []string{"buy", "shop", "order", "kaufen", "bestellen", "sichern", "angebot", "discount", "rabatt", "claim", "get "}
	buttonAttrs = []string{"data-redirect", "data-href", "data-url", "data-outbound"}
)

// CTAURL extracts the call-to-action destination from a content page. Unlike
// CandidateURL it accepts same-document relative links, resolving them
// against baseURL, because presell pages frequently route through their own
// /go/ or /out/ paths before leaving the site.
func CTAURL(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	// Anchor text matching buy/shop vocabulary.
	if u := anchorByVocabulary(doc, baseURL); u != "" {
		return u
	}

	// Explicit redirect data attributes on any element.
	for _, attr := range buttonAttrs {
		var found string
		doc.Find("[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, _ := s.Attr(attr)
			if u := resolveCTA(baseURL, decodeWrapped(raw)); u != "" {
				found = u
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	// Inline onclick handlers.
	var onclickFound string
	doc.Find("[onclick]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, _ := s.Attr("onclick")
		if m := onclickRe.FindStringSubmatch(raw); m != nil {
			if u := resolveCTA(baseURL, m[1]); u != "" {
				onclickFound = u
				return false
			}
		}
		return true
	})
	if onclickFound != "" {
		return onclickFound
	}

	// Form actions pointing off-page.
	var formFound string
	doc.Find("form[action]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw, _ := s.Attr("action")
		if u := resolveCTA(baseURL, raw); u != "" && hostOf(u) != hostOf(baseURL) {
			formFound = u
			return false
		}
		return true
	})
	if formFound != "" {
		return formFound
	}

	// JS variable assignments and JSON redirect fields in inline scripts.
	if m := jsVarRe.FindStringSubmatch(html); m != nil {
		if u := resolveCTA(baseURL, m[1]); u != "" {
			return u
		}
	}
	if m := jsonCTARe.FindStringSubmatch(html); m != nil {
		raw := strings.ReplaceAll(m[1], `\/`, `/`)
		if u := resolveCTA(baseURL, raw); u != "" {
			return u
		}
	}

	return ""
}

// anchorByVocabulary returns the first anchor whose visible text matches the
// buy/shop vocabulary, preferring off-site destinations over same-site ones.
func anchorByVocabulary(doc *goquery.Document, baseURL string) string {
	baseHost := hostOf(baseURL)
	var sameSite string
	var offSite string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if text == "" || !matchesBuyVocabulary(text) {
			return true
		}
		u := resolveCTA(baseURL, href)
		if u == "" {
			return true
		}
		if hostOf(u) != baseHost {
			offSite = u
			return false
		}
		if sameSite == "" && hasOutboundPath(u) {
			sameSite = u
		}
		return true
	})

	if offSite != "" {
		return offSite
	}
	return sameSite
}

func matchesBuyVocabulary(text string) bool {
	for _, w := range buyVocab {
		if strings.Contains(text, w) {
			return true
		}
	}
	return matchesCTAText(text)
}

// hasOutboundPath recognizes same-site redirect paths like /go/offer or
// /out/shop that presell pages use before leaving the site.
func hasOutboundPath(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range []string{"/go/", "/out/", "/visit/", "/redirect", "/link/", "/offer"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// resolveCTA resolves href against base and filters out pseudo-links and
// platform domains.
func resolveCTA(base, href string) string {
	if !plausibleHref(href) {
		return ""
	}
	u := absoluteURL(base, href)
	if u == "" {
		return ""
	}
	if IsPlatformDomain(hostOf(u)) {
		return ""
	}
	return u
}
