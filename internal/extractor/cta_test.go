package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCTAURL_AnchorVocabulary_OffSite(t *testing.T) {
	html := `
	<article><p>Our honest review of the serum.</p>
	<a href="https://shop.example/products/serum">Buy now and save 20%</a></article>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/products/serum", got)
}

func TestCTAURL_SameSiteOutboundPath(t *testing.T) {
	html := `<a href="/go/serum-offer">Jetzt kaufen</a>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://healthblog.example/go/serum-offer", got)
}

func TestCTAURL_DataRedirectAttribute(t *testing.T) {
	html := `<button data-redirect="https://shop.example/checkout">Weiter</button>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/checkout", got)
}

func TestCTAURL_OnclickHandler(t *testing.T) {
	html := `<button onclick="window.open('https://shop.example/deal')">Go</button>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/deal", got)
}

func TestCTAURL_FormAction_OffSiteOnly(t *testing.T) {
	html := `
	<form action="/newsletter"><input type="email"></form>
	<form action="https://shop.example/cart/add"><button>Add</button></form>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/cart/add", got)
}

func TestCTAURL_JSVariable(t *testing.T) {
	html := `<script>var redirectUrl = "https://shop.example/offer";</script>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/offer", got)
}

func TestCTAURL_JSONRedirectField(t *testing.T) {
	html := `<script>{"redirect":"https:\/\/shop.example\/x"}</script>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/x", got)
}

func TestCTAURL_NoCTA(t *testing.T) {
	html := `<article><p>Just an article.</p><a href="/about">About us</a></article>`
	assert.Equal(t, "", CTAURL(html, "https://healthblog.example/post"))
}

func TestCTAURL_SkipsPlatformLinks(t *testing.T) {
	html := `<a href="https://www.facebook.com/share">Buy now</a>
	<a href="https://shop.example/buy">Order now</a>`
	got := CTAURL(html, "https://healthblog.example/review")
	assert.Equal(t, "https://shop.example/buy", got)
}
