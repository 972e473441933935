package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobias/adscout/internal/types"
)

func adsWithCaption(n int, caption, pageID string) []types.AdRecord {
	ads := make([]types.AdRecord, n)
	for i := range ads {
		ads[i] = types.AdRecord{ID: "ad", PageID: pageID, LinkCaption: caption}
	}
	return ads
}

func TestResolveBrandDomain_PluralityVote(t *testing.T) {
	ads := append(adsWithCaption(40, "GLOW25.DE", "p1"), adsWithCaption(1, "glow25SHOP.de", "p1")...)
	assert.Equal(t, "glow25.de", ResolveBrandDomain(ads))
}

func TestResolveBrandDomain_IgnoresPlatformAndJunk(t *testing.T) {
	ads := []types.AdRecord{
		{LinkCaption: "facebook.com"},
		{LinkCaption: "Hol es dir jetzt!"},
		{LinkCaption: ""},
	}
	assert.Equal(t, "", ResolveBrandDomain(ads))
}

func TestBuildProfile_AliasesAndOfficialPages(t *testing.T) {
	ads := []types.AdRecord{
		{PageID: "p1", PageName: "Glow25 - Beauty von innen", LinkCaption: "GLOW25.DE", PayerName: "Glow25 GmbH"},
		{PageID: "p2", PageName: "Random Affiliate", LinkCaption: "other.example"},
	}
	profile := BuildProfile("Glow25", ads, "glow25.de")

	assert.Equal(t, "glow25.de", profile.Domain)
	assert.Contains(t, profile.Aliases, "glow25")
	assert.Contains(t, profile.Aliases, "beauty von innen")
	assert.Equal(t, []string{"p1"}, profile.OfficialPageIDs)
	assert.Equal(t, []string{"Glow25 GmbH"}, profile.PayerNames)
}

func TestAggregate_GroupsByDomainAndExcludesBrand(t *testing.T) {
	profile := &types.BrandProfile{Name: "Glow25", Domain: "glow25.de"}
	ads := []types.AdRecord{
		{PageID: "p1", LinkCaption: "healthblog.example"},
		{PageID: "p1", LinkCaption: "healthblog.example"},
		{PageID: "p2", LinkCaption: "https://healthblog.example/review/glow"},
		{PageID: "p3", LinkCaption: "GLOW25.DE"},
		{PageID: "p4", LinkCaption: "www.facebook.com"},
	}

	cands := Aggregate(ads, profile)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "healthblog.example", c.Domain)
	assert.Equal(t, 3, c.AdCount)
	assert.ElementsMatch(t, []string{"p1", "p2"}, c.PageIDs)
	assert.Equal(t, map[string]int{"https://healthblog.example/review/glow": 1}, c.FullURLs)
}

func TestAggregate_PriorityFlag(t *testing.T) {
	profile := &types.BrandProfile{Name: "Glow25", Domain: "glow25.de"}
	ads := []types.AdRecord{
		// p1 advertises both the brand domain and a third-party domain.
		{PageID: "p1", LinkCaption: "GLOW25.DE"},
		{PageID: "p1", LinkCaption: "presell.example"},
		{PageID: "p2", LinkCaption: "other.example"},
		{PageID: "p2", LinkCaption: "other.example"},
		{PageID: "p2", LinkCaption: "other.example"},
	}

	cands := Aggregate(ads, profile)
	require.Len(t, cands, 2)
	// Priority domain sorts first despite the lower ad count.
	assert.Equal(t, "presell.example", cands[0].Domain)
	assert.True(t, cands[0].Priority)
	assert.False(t, cands[1].Priority)
}

func TestAggregate_ExtractsURLsFromCreativeText(t *testing.T) {
	profile := &types.BrandProfile{Name: "X", Domain: "x.example"}
	ads := []types.AdRecord{
		{PageID: "p1", Body: "Read our review at https://blog.example/glow-review today"},
	}
	cands := Aggregate(ads, profile)
	require.Len(t, cands, 1)
	assert.Equal(t, "blog.example", cands[0].Domain)
	assert.Contains(t, cands[0].FullURLs, "https://blog.example/glow-review")
}

func TestSplitPageName(t *testing.T) {
	parts := splitPageName("Glow25 - Beauty von innen | Official")
	assert.Contains(t, parts, "Glow25")
	assert.Contains(t, parts, "Beauty von innen")
	assert.Contains(t, parts, "Official")
	assert.Empty(t, splitPageName(""))
}
