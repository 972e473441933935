// Package platform identifies the storefront software running on a domain
// and enumerates its public product vendors to test brand ownership.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tobias/adscout/internal/fetch"
)

// Platform identifiers.
const (
	Shopify     = "shopify"
	WooCommerce = "woocommerce"
	Unknown     = "unknown"
)

// fingerprint is one platform marker with its method tag and confidence
// weight. Weights sum across matched fingerprints, capped at 1.0.
type fingerprint struct {
	platform string
	method   string
	marker   string
	weight   float64
}

var fingerprints = []fingerprint{
	{Shopify, "cdn", "cdn.shopify.com", 0.5},
	{Shopify, "global", "window.Shopify", 0.4},
	{Shopify, "global", "Shopify.theme", 0.4},
	{Shopify, "markup", "shopify-section", 0.3},
	{WooCommerce, "markup", "wp-content/plugins/woocommerce", 0.5},
	{WooCommerce, "global", "woocommerce_params", 0.4},
}

// Detection is the outcome of probing one domain.
type Detection struct {
	Domain        string   `json:"domain"`
	Platform      string   `json:"platform"`
	Methods       []string `json:"methods,omitempty"`
	StoreName     string   `json:"store_name,omitempty"`
	Vendors       []string `json:"vendors,omitempty"`
	PrimaryVendor string   `json:"primary_vendor,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// Detector probes domains for storefront platforms.
type Detector struct {
	client    *http.Client
	userAgent string
	scheme    string
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithScheme overrides the probe scheme; plain-HTTP test servers use this.
func WithScheme(scheme string) DetectorOption {
	return func(d *Detector) { d.scheme = scheme }
}

// NewDetector creates a Detector with the given per-probe timeout.
func NewDetector(timeout time.Duration, opts ...DetectorOption) *Detector {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	d := &Detector{
		client:    &http.Client{Timeout: timeout},
		userAgent: fetch.DefaultUserAgent,
		scheme:    "https",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect probes the homepage and the public products JSON endpoint
// concurrently and merges the findings. Probe failures degrade to an empty
// detection, never an error; the only error returned is context cancellation.
func (d *Detector) Detect(ctx context.Context, domain string) (*Detection, error) {
	det := &Detection{Domain: domain, Platform: Unknown}

	var homepage string
	var products *productListing

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		html, err := d.get(gCtx, d.scheme+"://"+domain)
		if err == nil {
			homepage = html
		}
		return nil
	})
	g.Go(func() error {
		p, err := d.fetchProducts(gCtx, domain)
		if err == nil {
			products = p
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return det, err
	}
	if ctx.Err() != nil {
		return det, ctx.Err()
	}

	if homepage != "" {
		d.applyFingerprints(det, homepage)
		det.StoreName = storeName(homepage)
	}
	if products != nil && len(products.Products) > 0 {
		// A live products.json endpoint is itself a Shopify marker.
		det.Platform = Shopify
		det.Methods = append(det.Methods, "products_json")
		det.Confidence += 0.6
		det.Vendors, det.PrimaryVendor = tallyVendors(products)
	}
	if det.Confidence > 1.0 {
		det.Confidence = 1.0
	}
	return det, nil
}

// SniffPlatform is a cheap HTML-only check used when the page content is
// already in hand and no extra probe is warranted.
func SniffPlatform(html string) string {
	for _, fp := range fingerprints {
		if strings.Contains(html, fp.marker) {
			return fp.platform
		}
	}
	return Unknown
}

func (d *Detector) applyFingerprints(det *Detection, html string) {
	for _, fp := range fingerprints {
		if !strings.Contains(html, fp.marker) {
			continue
		}
		if det.Platform == Unknown {
			det.Platform = fp.platform
		}
		if det.Platform != fp.platform {
			continue
		}
		det.Methods = append(det.Methods, fp.method)
		det.Confidence += fp.weight
	}
}

// productListing mirrors the public /products.json shape exposed by Shopify
// storefronts.
type productListing struct {
	Products []struct {
		Title  string `json:"title"`
		Vendor string `json:"vendor"`
	} `json:"products"`
}

func (d *Detector) fetchProducts(ctx context.Context, domain string) (*productListing, error) {
	body, err := d.get(ctx, fmt.Sprintf("%s://%s/products.json?limit=250", d.scheme, domain))
	if err != nil {
		return nil, err
	}
	var listing productListing
	if err := json.Unmarshal([]byte(body), &listing); err != nil {
		return nil, fmt.Errorf("products.json parse failed: %w", err)
	}
	return &listing, nil
}

func (d *Detector) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", d.userAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d for %s", resp.StatusCode, url)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, fetch.MaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// tallyVendors counts the vendor field across listed products. The most
// frequent vendor is the primary one; ties break alphabetically.
func tallyVendors(listing *productListing) (vendors []string, primary string) {
	counts := make(map[string]int)
	for _, p := range listing.Products {
		v := strings.TrimSpace(p.Vendor)
		if v == "" {
			continue
		}
		counts[v]++
	}
	for v := range counts {
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool {
		if counts[vendors[i]] != counts[vendors[j]] {
			return counts[vendors[i]] > counts[vendors[j]]
		}
		return vendors[i] < vendors[j]
	})
	if len(vendors) > 0 {
		primary = vendors[0]
	}
	return vendors, primary
}

// storeName pulls the og:site_name or <title> out of a homepage.
func storeName(html string) string {
	for _, marker := range []string{`property="og:site_name" content="`, `name="og:site_name" content="`} {
		if i := strings.Index(html, marker); i >= 0 {
			rest := html[i+len(marker):]
			if j := strings.IndexByte(rest, '"'); j > 0 {
				return strings.TrimSpace(rest[:j])
			}
		}
	}
	if i := strings.Index(html, "<title>"); i >= 0 {
		rest := html[i+len("<title>"):]
		if j := strings.Index(rest, "</title>"); j > 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	return ""
}
