package types

import "sort"

// CandidateDomain is a hostname seen in ad captions that has not yet been
// verified. It accumulates evidence during aggregation and is consumed by the
// verification state machine; it is not persisted after a run.
type CandidateDomain struct {
	Domain   string         `json:"domain"`
	PageIDs  []string       `json:"page_ids"`
	AdCount  int            `json:"ad_count"`
	FullURLs map[string]int `json:"full_urls,omitempty"`
	Priority bool           `json:"priority"`
}

// AddPageID records a page that advertised this domain, keeping the set unique.
func (c *CandidateDomain) AddPageID(pageID string) {
	if pageID == "" {
		return
	}
	for _, id := range c.PageIDs {
		if id == pageID {
			return
		}
	}
	c.PageIDs = append(c.PageIDs, pageID)
}

// AddURL counts one occurrence of a full landing URL for this domain.
func (c *CandidateDomain) AddURL(url string) {
	if url == "" {
		return
	}
	if c.FullURLs == nil {
		c.FullURLs = make(map[string]int)
	}
	c.FullURLs[url]++
}

// TopURLs returns up to n full URLs ordered by occurrence count, most
// frequent first. Ties break lexicographically so the order is stable.
func (c *CandidateDomain) TopURLs(n int) []string {
	urls := make([]string, 0, len(c.FullURLs))
	for u := range c.FullURLs {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		if c.FullURLs[urls[i]] != c.FullURLs[urls[j]] {
			return c.FullURLs[urls[i]] > c.FullURLs[urls[j]]
		}
		return urls[i] < urls[j]
	})
	if len(urls) > n {
		urls = urls[:n]
	}
	return urls
}
