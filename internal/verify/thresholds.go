package verify

// Thresholds holds every confidence weight the cascade assigns. The values
// are empirically tuned defaults, exposed as configuration rather than
// constants baked into the strategies.
type Thresholds struct {
	Direct           float64 `json:"direct"`
	Redirect         float64 `json:"redirect"`
	ContentLink      float64 `json:"content_link"`
	ContentMention   float64 `json:"content_mention"`
	PresellCTA       float64 `json:"presell_cta"`
	LandingDomain    float64 `json:"landing_domain"`
	LandingPathAlias float64 `json:"landing_path_alias"`
	LandingContent   float64 `json:"landing_content"`
	LandingMention   float64 `json:"landing_mention"`
	DualDomain       float64 `json:"dual_domain"`
	RenderedAnchor   float64 `json:"rendered_anchor"`
	RenderedText     float64 `json:"rendered_text"`
	RenderedAlias    float64 `json:"rendered_alias"`
	RenderedCTA      float64 `json:"rendered_cta"`
	// MinAliasLen is the minimum normalized alias length considered for
	// redirect-target matching; MinContentAliasLen for content mentions.
	MinAliasLen        int `json:"min_alias_len"`
	MinContentAliasLen int `json:"min_content_alias_len"`
}

// DefaultThresholds returns the tuned default weights.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Direct:             1.0,
		Redirect:           0.90,
		ContentLink:        0.75,
		ContentMention:     0.60,
		PresellCTA:         0.85,
		LandingDomain:      0.85,
		LandingPathAlias:   0.80,
		LandingContent:     0.75,
		LandingMention:     0.65,
		DualDomain:         0.80,
		RenderedAnchor:     0.85,
		RenderedText:       0.80,
		RenderedAlias:      0.70,
		RenderedCTA:        0.85,
		MinAliasLen:        3,
		MinContentAliasLen: 4,
	}
}
