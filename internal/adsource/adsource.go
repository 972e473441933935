// Package adsource abstracts the ad transparency archive the pipeline
// searches. The core only depends on the Source interface; the concrete
// client for the Meta Ad Library lives alongside it.
package adsource

import (
	"context"

	"github.com/tobias/adscout/internal/types"
)

// Match modes for ad search.
const (
	// MatchExactPhrase searches the terms as one exact phrase.
	MatchExactPhrase = "exact_phrase"
	// MatchKeywordUnordered searches all words regardless of order.
	MatchKeywordUnordered = "keyword_unordered"
)

// Query describes one ad search.
type Query struct {
	Terms      string
	Countries  []string
	MatchMode  string
	MaxResults int
}

// Source returns ad records for a search query. Implementations handle
// pagination internally and return at most MaxResults records.
type Source interface {
	Search(ctx context.Context, q Query) ([]types.AdRecord, error)
}
