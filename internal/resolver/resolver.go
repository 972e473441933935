// Package resolver follows HTTP redirect chains hop by hop, including
// meta-refresh and common JavaScript redirect idioms found in response
// bodies. It is the low-level primitive behind redirect verification and
// CTA chain tracking.
package resolver

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tobias/adscout/internal/extractor"
	"github.com/tobias/adscout/internal/fetch"
)

// DefaultMaxHops bounds a redirect chain.
const DefaultMaxHops = 10

// maxProbeBody caps how much of a terminal response body is inspected for
// meta-refresh and JS redirects.
const maxProbeBody = 256 << 10

// Result is the outcome of resolving one URL. Chain holds every URL visited
// in order, starting with the input; FinalURL is the last entry.
type Result struct {
	FinalURL string
	Chain    []string
}

// FinalDomain returns the lowercased host of the final URL.
func (r *Result) FinalDomain() string {
	return fetch.Domain(r.FinalURL)
}

// Resolver follows redirect chains one hop at a time. Header-only probes are
// preferred; servers that reject HEAD get a full GET, whose body is then also
// inspected for client-side redirects.
type Resolver struct {
	client    *http.Client
	maxHops   int
	userAgent string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxHops overrides the default hop bound.
func WithMaxHops(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxHops = n
		}
	}
}

// WithTimeout sets the per-hop request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.client.Timeout = d
		}
	}
}

// WithUserAgent overrides the probe user agent.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// New creates a Resolver. The internal client never follows redirects on its
// own; every hop is observed and recorded.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		client: &http.Client{
			Timeout: 8 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxHops:   DefaultMaxHops,
		userAgent: fetch.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows the redirect chain starting at rawURL. It stops on a
// non-redirect response, a repeated URL, the hop bound, or context
// cancellation. Network failures terminate the walk and return the chain
// accumulated so far; callers treat an unchanged chain as "no redirect
// observed", not as an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) *Result {
	chain := []string{rawURL}
	seen := map[string]bool{rawURL: true}
	current := rawURL

	for hop := 0; hop < r.maxHops; hop++ {
		next, ok := r.step(ctx, current)
		if !ok || next == "" || next == current {
			break
		}
		if seen[next] {
			// Cycle guard: A -> B -> A stops without re-appending A.
			break
		}
		seen[next] = true
		chain = append(chain, next)
		current = next
	}

	return &Result{FinalURL: current, Chain: chain}
}

// step performs one probe and returns the next URL in the chain, if any.
// The second return value is false when the walk should stop.
func (r *Resolver) step(ctx context.Context, current string) (string, bool) {
	resp, body, err := r.probe(ctx, current)
	if err != nil {
		return "", false
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", false
		}
		return resolveRelative(current, loc), true
	}

	// Terminal response: a redirect can still hide in the body.
	if body != "" {
		if next := extractor.MetaRefreshURL(body); next != "" {
			return resolveRelative(current, next), true
		}
		if next := extractor.JSRedirectURL(body); next != "" {
			return resolveRelative(current, next), true
		}
	}
	return "", false
}

// probe issues a HEAD request, falling back to GET when the server rejects
// header-only probes. Only GET responses carry a body to inspect.
func (r *Resolver) probe(ctx context.Context, rawURL string) (*http.Response, string, error) {
	resp, err := r.do(ctx, http.MethodHead, rawURL)
	if err == nil && resp.StatusCode != http.StatusMethodNotAllowed && resp.StatusCode != http.StatusNotImplemented {
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			return resp, "", nil
		}
		// HEAD gave a terminal status; re-fetch with GET so the body can be
		// checked for meta-refresh and JS redirects.
	}

	resp, err = r.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var body string
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") || ct == "" {
		b, readErr := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
		if readErr == nil {
			body = string(b)
		}
	}
	return resp, body, nil
}

func (r *Resolver) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)
	return r.client.Do(req)
}

// resolveRelative resolves a possibly-relative location header against the
// URL it was served from.
func resolveRelative(base, loc string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return loc
	}
	locURL, err := url.Parse(strings.TrimSpace(loc))
	if err != nil {
		return loc
	}
	return baseURL.ResolveReference(locURL).String()
}
