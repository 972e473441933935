package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatAds(n int, ad AdText) []AdText {
	ads := make([]AdText, n)
	for i := range ads {
		ads[i] = ad
	}
	return ads
}

func TestGenerate_FrequencyRanking(t *testing.T) {
	ads := append(
		repeatAds(5, AdText{Body: "Kollagen Pulver für schöne Haut", Title: "Kollagen Pulver"}),
		repeatAds(3, AdText{Body: "Kollagen trinken täglich"})...,
	)

	got := Generate(ads, "Glow25", 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "kollagen", got[0].Word)
	assert.Equal(t, 13, got[0].Score) // 5 bodies + 5 titles + 3 bodies
}

func TestGenerate_FiltersBrandTokens(t *testing.T) {
	ads := repeatAds(5, AdText{Body: "Glow25 Kollagen glow25shop bestellen"})
	got := Generate(ads, "Glow25", 10)
	for _, k := range got {
		assert.NotContains(t, k.Word, "glow25")
	}
}

func TestGenerate_FiltersStopWordsShortAndNumeric(t *testing.T) {
	ads := repeatAds(5, AdText{Body: "die und der 2024 ab Kollagen jetzt kaufen"})
	got := Generate(ads, "Brand", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "kollagen", got[0].Word)
}

func TestGenerate_UmlautsSurvive(t *testing.T) {
	ads := repeatAds(4, AdText{Body: "Schönheit Nahrungsergänzung"})
	got := Generate(ads, "Brand", 10)
	words := Words(got)
	assert.Contains(t, words, "schönheit")
	assert.Contains(t, words, "nahrungsergänzung")
}

func TestGenerate_CompoundsPadTheTail(t *testing.T) {
	// With 1000 ads the single-token floor rises to 5 occurrences. "marine"
	// and "peptide" occur only 4 times each and miss the singles cut, but
	// their bigram clears the compound floor of 3 and pads the tail.
	ads := append(
		repeatAds(996, AdText{Body: "Kollagen Pulver"}),
		repeatAds(4, AdText{Body: "marine peptide"})...,
	)

	got := Generate(ads, "Brand", 20)
	words := Words(got)
	assert.Contains(t, words, "kollagen")
	assert.Contains(t, words, "marine peptide")

	// Singles come first.
	compoundIdx := -1
	for i, w := range words {
		if strings.Contains(w, " ") {
			compoundIdx = i
			break
		}
	}
	for i, w := range words {
		if compoundIdx >= 0 && i > compoundIdx {
			assert.Contains(t, w, " ", "single keyword %q after first compound", w)
		}
	}
}

func TestGenerate_MaxKeywordsRespected(t *testing.T) {
	ads := repeatAds(5, AdText{Body: "alpha1word beta2word gamma3word delta4word"})
	got := Generate(ads, "Brand", 2)
	assert.Len(t, got, 2)
}

func TestGenerate_Empty(t *testing.T) {
	assert.Nil(t, Generate(nil, "Brand", 10))
	assert.Nil(t, Generate([]AdText{{Body: "text"}}, "Brand", 0))
}

func TestParseRefineResponse(t *testing.T) {
	got, err := parseRefineResponse("```json\n[\"kollagen\", \"peptide\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"kollagen", "peptide"}, got)

	_, err = parseRefineResponse(`{"not": "an array"}`)
	assert.Error(t, err)

	_, err = parseRefineResponse("no json at all")
	assert.Error(t, err)
}
