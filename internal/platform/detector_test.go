package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetector(t *testing.T, mux *http.ServeMux) (*Detector, string) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	return NewDetector(5*time.Second, WithScheme("http")), u.Host
}

func TestDetect_ShopifyFingerprints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head>
		<script src="https://cdn.shopify.com/s/files/1/theme.js"></script>
		<script>window.Shopify = {shop: "glow25.myshopify.com"};</script>
		<meta property="og:site_name" content="Glow25 Shop">
		</head><body><div class="shopify-section">x</div></body></html>`))
	})

	d, host := testDetector(t, mux)
	det, err := d.Detect(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, Shopify, det.Platform)
	assert.Contains(t, det.Methods, "cdn")
	assert.Contains(t, det.Methods, "global")
	assert.Contains(t, det.Methods, "markup")
	assert.Equal(t, "Glow25 Shop", det.StoreName)
	assert.Equal(t, 1.0, det.Confidence) // 0.5+0.4+0.3 capped
}

func TestDetect_ProductsJSONVendors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[
		{"title":"Serum","vendor":"Glow25 GmbH"},
		{"title":"Cream","vendor":"Glow25 GmbH"},
		{"title":"Misc","vendor":"OtherBrand"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>no fingerprints</html>`))
	})

	d, host := testDetector(t, mux)
	det, err := d.Detect(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, Shopify, det.Platform)
	assert.Contains(t, det.Methods, "products_json")
	assert.Equal(t, "Glow25 GmbH", det.PrimaryVendor)
	assert.ElementsMatch(t, []string{"Glow25 GmbH", "OtherBrand"}, det.Vendors)
}

func TestDetect_UnreachableDomainDegrades(t *testing.T) {
	d := NewDetector(1*time.Second, WithScheme("http"))
	det, err := d.Detect(context.Background(), "127.0.0.1:1")
	require.NoError(t, err)
	assert.Equal(t, Unknown, det.Platform)
	assert.Zero(t, det.Confidence)
}

func TestVendorMatches_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"title":"Serum","vendor":"Glow25 GmbH"}]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	})

	d, host := testDetector(t, mux)
	m, err := d.VendorMatches(context.Background(), host, "Glow25")
	require.NoError(t, err)
	assert.True(t, m.Found)
	assert.Equal(t, "Glow25 GmbH", m.Vendor)
	assert.Equal(t, VendorNormalizedConfidence, m.Confidence)
}

func TestSniffPlatform(t *testing.T) {
	assert.Equal(t, Shopify, SniffPlatform(`<script src="https://cdn.shopify.com/x.js">`))
	assert.Equal(t, WooCommerce, SniffPlatform(`<link href="/wp-content/plugins/woocommerce/style.css">`))
	assert.Equal(t, Unknown, SniffPlatform(`<html>plain</html>`))
}
