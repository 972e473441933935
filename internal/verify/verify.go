// Package verify decides whether a candidate domain is connected to a brand.
// It runs an ordered, cost-ascending cascade of verification strategies; the
// first strategy that produces a match is final and later, more expensive
// ones never run. A strategy failure is a fall-through, never an abort: only
// a fully exhausted cascade yields a non-match.
package verify

import (
	"context"
	"log"
	"time"

	"github.com/tobias/adscout/internal/fetch"
	"github.com/tobias/adscout/internal/platform"
	"github.com/tobias/adscout/internal/presell"
	"github.com/tobias/adscout/internal/resolver"
	"github.com/tobias/adscout/internal/store"
	"github.com/tobias/adscout/internal/types"
)

// PageCache persists fetched homepage HTML between runs so repeat candidates
// skip the network. Nil disables caching.
type PageCache interface {
	GetPage(ctx context.Context, url string) (*store.CachedPage, error)
	PutPage(ctx context.Context, page *store.CachedPage) error
}

// Evidence bundles what aggregation already knows about a candidate domain:
// the ads that referenced it and the full landing URLs seen for it.
type Evidence struct {
	Ads      []types.AdRecord
	FullURLs map[string]int
	PageIDs  []string
}

// Renderer is the optional JS-rendering capability used by the last-resort
// strategy. Nil disables it.
type Renderer interface {
	Render(ctx context.Context, url string) (*fetch.RenderResult, error)
}

// Strategy is one step of the cascade. A nil result means fall through; an
// error also falls through and is only logged.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, s *session) (*types.VerificationResult, error)
}

// Verifier runs the cascade for candidate domains.
type Verifier struct {
	strategies []Strategy
	thresholds Thresholds
	fetchOpts  *fetch.Options
	cache      PageCache
	scheme     string
	verbose    bool
}

// Config wires the Verifier's collaborators.
type Config struct {
	Thresholds   Thresholds
	FetchTimeout time.Duration
	Resolver     *resolver.Resolver
	Detector     *platform.Detector
	Tracker      *presell.Tracker
	Renderer     Renderer  // optional
	Cache        PageCache // optional
	Verbose      bool
	// Scheme overrides the probe scheme for candidate homepages; tests use
	// "http" against local servers.
	Scheme string
}

// New assembles the cascade in its fixed order.
func New(cfg Config) *Verifier {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = fetch.DefaultTimeout
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.New(resolver.WithTimeout(cfg.FetchTimeout))
	}
	if cfg.Detector == nil {
		cfg.Detector = platform.NewDetector(cfg.FetchTimeout)
	}
	if cfg.Tracker == nil {
		cfg.Tracker = presell.NewTracker(cfg.FetchTimeout, resolver.DefaultMaxHops, cfg.Verbose)
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}

	v := &Verifier{
		thresholds: cfg.Thresholds,
		fetchOpts:  &fetch.Options{Timeout: cfg.FetchTimeout, UserAgent: fetch.DefaultUserAgent},
		cache:      cfg.Cache,
		scheme:     cfg.Scheme,
		verbose:    cfg.Verbose,
	}
	v.strategies = []Strategy{
		&directStrategy{},
		&redirectStrategy{resolver: cfg.Resolver},
		&vendorStrategy{detector: cfg.Detector},
		&contentStrategy{},
		&presellStrategy{tracker: cfg.Tracker, detector: cfg.Detector},
		&landingURLStrategy{},
		&dualDomainStrategy{},
	}
	if cfg.Renderer != nil {
		v.strategies = append(v.strategies, &renderedStrategy{renderer: cfg.Renderer, resolver: cfg.Resolver})
	}
	return v
}

// Verify runs the cascade for one domain. It always returns a result; the
// caller attaches page IDs and ad counts afterwards.
func (v *Verifier) Verify(ctx context.Context, domain string, profile *types.BrandProfile, ev *Evidence) *types.VerificationResult {
	if ev == nil {
		ev = &Evidence{}
	}
	s := newSession(domain, profile, ev, v.thresholds)
	s.scheme = v.scheme
	s.fetchOpts = v.fetchOpts
	s.cache = v.cache

	for _, strat := range v.strategies {
		if ctx.Err() != nil {
			break
		}
		res, err := strat.Attempt(ctx, s)
		s.trail = append(s.trail, strat.Name())
		if err != nil {
			if v.verbose {
				log.Printf("[VERIFY] %s: %s failed: %v", domain, strat.Name(), err)
			}
			continue
		}
		if res != nil {
			res.Domain = domain
			res.Trail = s.trail
			if v.verbose {
				log.Printf("[VERIFY] %s: matched via %s (%.2f)", domain, res.Kind, res.Confidence)
			}
			return res
		}
	}

	return &types.VerificationResult{
		Domain: domain,
		Match:  false,
		Kind:   types.MatchNone,
		Trail:  s.trail,
	}
}
