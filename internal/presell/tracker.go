// Package presell walks an editorial or advertorial page through its
// call-to-action link to the storefront it is funneling traffic to. It
// composes the URL extractor with the redirect resolver: CTA discovery works
// on page content, not just HTTP headers.
package presell

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tobias/adscout/internal/extractor"
	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/resolver"
)

// Classification confidence weights. They accumulate; a page that is
// recognizably presell, has a CTA and lands on a shop scores 0.9.
const (
	presellWeight = 0.2
	ctaWeight     = 0.3
	shopWeight    = 0.4
)

// editorialPathRe matches URL paths typical for blog and review content.
var editorialPathRe = regexp.MustCompile(`(?i)/(?:blog|news|post|article|artikel|review|reviews|erfahrung(?:en)?|test|ratgeber|guide|magazin|story)(?:[/-]|$)`)

// shopIndicators mark a final destination as a storefront.
var shopIndicators = []string{"/checkout", "/cart", "/products/", "/collections/", "cdn.shopify.com", "add-to-cart"}

// checkoutMarkers are markup fragments whose absence suggests a page does not
// sell directly.
var checkoutMarkers = []string{"add to cart", "add-to-cart", "in den warenkorb", "checkout", "data-product-id", "cart-drawer"}

// Result describes one tracked page.
type Result struct {
	PageURL    string   `json:"page_url"`
	CTAURL     string   `json:"cta_url,omitempty"`
	FinalURL   string   `json:"final_url,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	IsPresell  bool     `json:"is_presell"`
	ShopDomain string   `json:"shop_domain,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Tracker fetches pages and follows their CTA chains.
type Tracker struct {
	fetchOpts *fetch.Options
	resolver  *resolver.Resolver
	verbose   bool
}

// NewTracker creates a Tracker. timeout bounds the page fetch; maxRedirects
// bounds the CTA redirect chain.
func NewTracker(timeout time.Duration, maxRedirects int, verbose bool) *Tracker {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &Tracker{
		fetchOpts: &fetch.Options{Timeout: timeout, UserAgent: fetch.DefaultUserAgent},
		resolver: resolver.New(
			resolver.WithMaxHops(maxRedirects),
			resolver.WithTimeout(timeout),
		),
		verbose: verbose,
	}
}

// Track fetches pageURL, classifies it, extracts its CTA and resolves the
// CTA's redirect chain. Fetch failures yield a zero-confidence result rather
// than an error; the cascade treats that as a fall-through.
func (t *Tracker) Track(ctx context.Context, pageURL string) (*Result, error) {
	res := &Result{PageURL: pageURL, Chain: []string{pageURL}}

	page, err := fetch.URL(ctx, pageURL, t.fetchOpts)
	if err != nil && page == nil {
		return res, err
	}

	res.IsPresell = classifyPresell(page.FinalURL, page.HTML)
	if res.IsPresell {
		res.Confidence += presellWeight
	}

	cta := extractor.CTAURL(page.HTML, page.FinalURL)
	if cta == "" {
		if t.verbose {
			log.Printf("[PRESELL] No CTA found on %s (presell=%v)", pageURL, res.IsPresell)
		}
		return res, nil
	}
	res.CTAURL = cta
	res.Confidence += ctaWeight
	res.Chain = append(res.Chain, cta)

	resolved := t.resolver.Resolve(ctx, cta)
	if len(resolved.Chain) > 1 {
		res.Chain = append(res.Chain, resolved.Chain[1:]...)
	}
	res.FinalURL = resolved.FinalURL
	res.ShopDomain = resolved.FinalDomain()

	if matchesShopIndicators(res.FinalURL) {
		res.Confidence += shopWeight
	}
	if t.verbose {
		log.Printf("[PRESELL] %s -> %s (shop=%s, confidence=%.2f)", pageURL, res.FinalURL, res.ShopDomain, res.Confidence)
	}
	return res, nil
}

// classifyPresell requires at least two independent editorial signals.
func classifyPresell(pageURL, html string) bool {
	signals := 0

	if editorialPathRe.MatchString(pathOf(pageURL)) {
		signals++
	}

	lower := strings.ToLower(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if ogType, ok := doc.Find(`meta[property="og:type"]`).Attr("content"); ok && strings.EqualFold(strings.TrimSpace(ogType), "article") {
			signals++
		}
		if doc.Find("article, [itemprop='articleBody'], .post-content, .entry-content").Length() > 0 {
			signals++
		}
	}

	if containsCTAVocabulary(lower) {
		signals++
	}
	if !containsAny(lower, checkoutMarkers) {
		signals++
	}

	return signals >= 2
}

func containsCTAVocabulary(lower string) bool {
	for _, phrase := range []string{"buy now", "shop now", "jetzt kaufen", "jetzt bestellen", "zum shop", "order now", "claim offer"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func matchesShopIndicators(finalURL string) bool {
	return containsAny(strings.ToLower(finalURL), shopIndicators)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
