package aggregate

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/tobias/adscout/internal/extractor"
	"github.com/tobias/adscout/internal/fetch"
)

// DomainSearcher finds a brand's official domain when the ads themselves do
// not reveal it. Optional capability; a nil searcher disables the fallback.
type DomainSearcher interface {
	FindOfficialDomain(ctx context.Context, brandName string) (string, error)
}

// WebSearcher implements DomainSearcher with Google Custom Search.
type WebSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewWebSearcher creates a searcher. cx is the custom search engine ID.
func NewWebSearcher(ctx context.Context, apiKey, cx string) (*WebSearcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &WebSearcher{svc: svc, cx: cx}, nil
}

// FindOfficialDomain queries "<brand> official website" and returns the
// domain of the first organic result that is not a social platform.
func (s *WebSearcher) FindOfficialDomain(ctx context.Context, brandName string) (string, error) {
	query := fmt.Sprintf("%s official website", brandName)
	resp, err := s.svc.Cse.List().Cx(s.cx).Q(query).Num(5).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	for _, item := range resp.Items {
		domain := fetch.Domain(item.Link)
		if domain == "" || extractor.IsPlatformDomain(domain) {
			continue
		}
		return domain, nil
	}
	return "", fmt.Errorf("no usable search results for %s", brandName)
}
