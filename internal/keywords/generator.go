// Package keywords mines a brand's own ad copy for the niche vocabulary its
// affiliates are likely to reuse. Single tokens are more reliable search
// terms than compounds, so compounds only pad the tail of the list.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// MinTokenLength filters short tokens that rarely carry niche signal.
const MinTokenLength = 4

// minBigramCount is the occurrence floor for compound keywords.
const minBigramCount = 3

// Keyword is one ranked keyword with its raw frequency score.
type Keyword struct {
	Word  string `json:"word"`
	Score int    `json:"score"`
}

// AdText bundles the creative text fields of one ad for mining.
type AdText struct {
	Body        string
	Title       string
	Description string
}

var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Generate tokenizes the brand's own ad copy, filters stop words and
// brand-derived tokens, frequency-ranks the survivors and pads the result
// with compound (2-gram) keywords up to maxKeywords.
func Generate(ads []AdText, brandName string, maxKeywords int) []Keyword {
	if maxKeywords <= 0 || len(ads) == 0 {
		return nil
	}
	brandLower := strings.ToLower(strings.TrimSpace(brandName))

	counts := make(map[string]int)
	bigramCounts := make(map[string]int)

	for _, ad := range ads {
		for _, field := range []struct {
			text    string
			bigrams bool
		}{
			{ad.Body, true},
			{ad.Title, true},
			// Descriptions feed single-token counts only; they are too
			// fragmentary for reliable compounds.
			{ad.Description, false},
		} {
			tokens := tokenize(field.text, brandLower)
			for i, tok := range tokens {
				counts[tok]++
				if !field.bigrams || i == 0 {
					continue
				}
				w1, w2 := tokens[i-1], tok
				if w1 == w2 || genericWords[w1] || genericWords[w2] {
					continue
				}
				bigramCounts[w1+" "+w2]++
			}
		}
	}

	// Keep tokens at or above max(3, 0.5% of ad count) occurrences.
	minCount := 3
	if threshold := len(ads) / 200; threshold > minCount {
		minCount = threshold
	}

	singles := make([]Keyword, 0, len(counts))
	for w, c := range counts {
		if c >= minCount {
			singles = append(singles, Keyword{Word: w, Score: c})
		}
	}
	sortKeywords(singles)

	result := singles
	if len(result) > maxKeywords {
		return result[:maxKeywords]
	}

	// Pad with compounds whose constituent words are not both present already.
	present := make(map[string]bool, len(result))
	for _, k := range result {
		present[k.Word] = true
	}
	compounds := make([]Keyword, 0, len(bigramCounts))
	for bg, c := range bigramCounts {
		if c < minBigramCount {
			continue
		}
		parts := strings.SplitN(bg, " ", 2)
		if present[parts[0]] && present[parts[1]] {
			continue
		}
		compounds = append(compounds, Keyword{Word: bg, Score: c})
	}
	sortKeywords(compounds)

	for _, k := range compounds {
		if len(result) >= maxKeywords {
			break
		}
		result = append(result, k)
	}
	return result
}

// Words returns just the keyword strings.
func Words(keywords []Keyword) []string {
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = k.Word
	}
	return out
}

// tokenize lowercases, splits on non-letter/digit runs (umlauts survive) and
// filters short, numeric, stop-word and brand-derived tokens.
func tokenize(text, brandLower string) []string {
	raw := tokenSplitRe.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len([]rune(tok)) < MinTokenLength {
			continue
		}
		if isNumeric(tok) || stopWords[tok] {
			continue
		}
		if brandLower != "" && (strings.Contains(tok, brandLower) || strings.Contains(brandLower, tok)) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// sortKeywords orders by score descending, then alphabetically for a stable
// and test-friendly order.
func sortKeywords(ks []Keyword) {
	sort.Slice(ks, func(i, j int) bool {
		if ks[i].Score != ks[j].Score {
			return ks[i].Score > ks[j].Score
		}
		return ks[i].Word < ks[j].Word
	})
}
