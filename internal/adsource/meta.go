package adsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tobias/adscout/internal/types"
)

// DefaultBaseURL is the Meta Graph API ads_archive endpoint.
const DefaultBaseURL = "https://graph.facebook.com/v21.0/ads_archive"

// pageSize is the per-request record count; the archive caps requests well
// below the totals a search can return, so pagination does the rest.
const pageSize = 100

// maxPages is a safety bound against runaway pagination cursors.
const maxPages = 50

// Error represents an ad archive request failure.
type Error struct {
	Query   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ad search error for %q: %s: %v", e.Query, e.Message, e.Cause)
	}
	return fmt.Sprintf("ad search error for %q: %s", e.Query, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// MetaAdLibrary is a Source backed by the Meta Ad Library API.
type MetaAdLibrary struct {
	client      *http.Client
	baseURL     string
	accessToken string
}

// NewMetaAdLibrary creates a client. accessToken is the Graph API token with
// ads_archive access.
func NewMetaAdLibrary(accessToken string, timeout time.Duration) *MetaAdLibrary {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MetaAdLibrary{
		client:      &http.Client{Timeout: timeout},
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
	}
}

// WithBaseURL points the client at a different endpoint; tests use this.
func (m *MetaAdLibrary) WithBaseURL(base string) *MetaAdLibrary {
	m.baseURL = base
	return m
}

// archivePage mirrors one page of the ads_archive response.
type archivePage struct {
	Data []struct {
		ID                      string   `json:"id"`
		PageID                  string   `json:"page_id"`
		PageName                string   `json:"page_name"`
		AdCreativeBodies        []string `json:"ad_creative_bodies"`
		AdCreativeLinkTitles    []string `json:"ad_creative_link_titles"`
		AdCreativeLinkDescs     []string `json:"ad_creative_link_descriptions"`
		AdCreativeLinkCaptions  []string `json:"ad_creative_link_captions"`
		AdSnapshotURL           string   `json:"ad_snapshot_url"`
		EUTotalReach            int64    `json:"eu_total_reach"`
		BeneficiaryPayers       []struct {
			Beneficiary string `json:"beneficiary"`
			Payer       string `json:"payer"`
		} `json:"beneficiary_payers"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// Search queries the ad archive, following pagination until MaxResults
// records are collected or the archive runs out of pages.
func (m *MetaAdLibrary) Search(ctx context.Context, q Query) ([]types.AdRecord, error) {
	if strings.TrimSpace(q.Terms) == "" {
		return nil, &Error{Query: q.Terms, Message: "empty search terms"}
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = pageSize
	}

	next := m.firstPageURL(q, maxResults)
	var records []types.AdRecord

	for page := 0; page < maxPages && next != ""; page++ {
		body, err := m.get(ctx, next)
		if err != nil {
			// Partial results beat none; the pipeline treats upstream
			// failures as "zero results for this call".
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}

		var parsed archivePage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return records, &Error{Query: q.Terms, Message: "malformed archive response", Cause: err}
		}

		for _, d := range parsed.Data {
			rec := types.AdRecord{
				ID:              d.ID,
				PageID:          d.PageID,
				PageName:        d.PageName,
				Body:            first(d.AdCreativeBodies),
				LinkTitle:       first(d.AdCreativeLinkTitles),
				LinkDescription: first(d.AdCreativeLinkDescs),
				LinkCaption:     first(d.AdCreativeLinkCaptions),
				SnapshotURL:     d.AdSnapshotURL,
				Reach:           d.EUTotalReach,
			}
			if len(d.BeneficiaryPayers) > 0 {
				rec.PayerName = d.BeneficiaryPayers[0].Payer
				rec.Beneficiary = d.BeneficiaryPayers[0].Beneficiary
			}
			records = append(records, rec)
			if len(records) >= maxResults {
				return records, nil
			}
		}
		next = parsed.Paging.Next
	}
	return records, nil
}

func (m *MetaAdLibrary) firstPageURL(q Query, maxResults int) string {
	params := url.Values{}
	params.Set("search_terms", q.Terms)
	params.Set("ad_active_status", "ALL")
	params.Set("ad_type", "ALL")
	params.Set("fields", strings.Join([]string{
		"id", "page_id", "page_name",
		"ad_creative_bodies", "ad_creative_link_titles",
		"ad_creative_link_descriptions", "ad_creative_link_captions",
		"ad_snapshot_url", "eu_total_reach", "beneficiary_payers",
	}, ","))
	if len(q.Countries) > 0 {
		params.Set("ad_reached_countries", "["+quoteJoin(q.Countries)+"]")
	}
	if q.MatchMode == MatchExactPhrase {
		params.Set("search_type", "KEYWORD_EXACT_PHRASE")
	} else {
		params.Set("search_type", "KEYWORD_UNORDERED")
	}
	limit := pageSize
	if maxResults < limit {
		limit = maxResults
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", m.accessToken)
	return m.baseURL + "?" + params.Encode()
}

func (m *MetaAdLibrary) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Cause: err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &Error{Message: "archive request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: "failed to read archive response", Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Message: fmt.Sprintf("archive returned status %d", resp.StatusCode)}
	}
	return body, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func quoteJoin(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = `"` + strings.ToUpper(s) + `"`
	}
	return strings.Join(quoted, ",")
}
