package presell

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_PresellWithCTAChain(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/blog/serum-review", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta property="og:type" content="article"></head>
		<body><article><p>We tested the serum for 30 days.</p>
		<a href="/go/offer">Jetzt kaufen</a></article></body></html>`))
	})
	mux.HandleFunc("/go/offer", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products/serum?ref=blog", http.StatusFound)
	})
	mux.HandleFunc("/products/serum", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>shop</html>`))
	})

	tr := NewTracker(5*time.Second, 5, false)
	res, err := tr.Track(context.Background(), server.URL+"/blog/serum-review")
	require.NoError(t, err)

	assert.True(t, res.IsPresell)
	assert.Equal(t, server.URL+"/go/offer", res.CTAURL)
	assert.Equal(t, server.URL+"/products/serum?ref=blog", res.FinalURL)
	assert.InDelta(t, 0.9, res.Confidence, 0.001) // presell + CTA + shop indicator
	assert.NotEmpty(t, res.ShopDomain)
}

func TestTrack_NoCTA(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><article><p>Plain article, no links.</p></article></body></html>`))
	}))
	defer server.Close()

	tr := NewTracker(5*time.Second, 5, false)
	res, err := tr.Track(context.Background(), server.URL+"/blog/post")
	require.NoError(t, err)
	assert.Empty(t, res.CTAURL)
	assert.Empty(t, res.ShopDomain)
	assert.InDelta(t, 0.2, res.Confidence, 0.001) // presell signals only
}

func TestTrack_FetchFailure(t *testing.T) {
	tr := NewTracker(1*time.Second, 5, false)
	res, err := tr.Track(context.Background(), "http://127.0.0.1:1/nope")
	require.Error(t, err)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.IsPresell)
}

func TestClassifyPresell(t *testing.T) {
	articleHTML := `<html><head><meta property="og:type" content="article"></head>
	<body><article>review text</article></body></html>`
	assert.True(t, classifyPresell("https://x.example/blog/review", articleHTML))

	shopHTML := `<html><body><button class="add-to-cart">Add to cart</button>
	<div data-product-id="1">checkout</div></body></html>`
	assert.False(t, classifyPresell("https://x.example/", shopHTML))
}
