package types

import "strings"

// AdRecord is one creative returned by the ad source. The pipeline treats it
// as read-only input; all fields come from the upstream ad transparency API.
type AdRecord struct {
	ID              string `json:"id"`
	PageID          string `json:"page_id"`
	PageName        string `json:"page_name"`
	Body            string `json:"body,omitempty"`
	LinkTitle       string `json:"link_title,omitempty"`
	LinkDescription string `json:"link_description,omitempty"`
	LinkCaption     string `json:"link_caption,omitempty"`
	SnapshotURL     string `json:"snapshot_url,omitempty"`
	Reach           int64  `json:"reach,omitempty"`
	PayerName       string `json:"payer_name,omitempty"`
	Beneficiary     string `json:"beneficiary,omitempty"`
}

// CreativeText joins all free-text fields of the creative. Keyword mining and
// dual-domain checks operate on this concatenation.
func (a *AdRecord) CreativeText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{a.Body, a.LinkTitle, a.LinkDescription, a.LinkCaption} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
