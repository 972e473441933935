// Package pipeline orchestrates a full discovery run: brand search, domain
// resolution, keyword mining, keyword searches, candidate aggregation,
// batched verification, and report assembly.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tobias/adscout/internal/adsource"
	"github.com/tobias/adscout/internal/aggregate"
	"github.com/tobias/adscout/internal/keywords"
	"github.com/tobias/adscout/internal/store"
	"github.com/tobias/adscout/internal/types"
	"github.com/tobias/adscout/internal/verify"
)

// Batch defaults. Verification and keyword searches run in small concurrent
// batches with a fixed pause between batches so external services are not
// hammered.
const (
	batchSize       = 4
	interBatchDelay = 500 * time.Millisecond
)

const (
	defaultMaxAds      = 250
	defaultMaxKeywords = 10
	defaultMaxDomains  = 30
	// defaultMinConfidence is the report inclusion floor.
	defaultMinConfidence = 0.70
)

// Stage names used in progress events and skip records.
const (
	StageBrandSearch   = "brand_search"
	StageDomain        = "domain_resolution"
	StageKeywords      = "keywords"
	StageKeywordSearch = "keyword_search"
	StageAggregate     = "aggregate"
	StageVerify        = "verification"
	StageReport        = "report"
)

// ProgressEvent is one progress update during a discovery run.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback receives progress events. Callbacks must not block.
type ProgressCallback func(event ProgressEvent)

// Error represents a pipeline-level failure.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pipeline error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("pipeline error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures one discovery run.
type Options struct {
	Brand         string   `validate:"required,min=2"`
	Countries     []string `validate:"dive,len=2"`
	MaxAds        int      `validate:"gte=0"`
	MaxKeywords   int      `validate:"gte=0,lte=50"`
	MaxDomains    int      `validate:"gte=0"`
	MinConfidence float64  `validate:"gte=0,lte=1"`
	// Timeout bounds the whole run; zero means unlimited.
	Timeout    time.Duration
	Verbose    bool
	OnProgress ProgressCallback
}

func (o *Options) applyDefaults() {
	if o.MaxAds == 0 {
		o.MaxAds = defaultMaxAds
	}
	if o.MaxKeywords == 0 {
		o.MaxKeywords = defaultMaxKeywords
	}
	if o.MaxDomains == 0 {
		o.MaxDomains = defaultMaxDomains
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = defaultMinConfidence
	}
}

// Config wires the pipeline's collaborators. Source is required; everything
// else degrades gracefully when absent.
type Config struct {
	Source   adsource.Source
	Refiner  keywords.Refiner          // optional keyword re-ranking
	Searcher aggregate.DomainSearcher  // optional brand-domain fallback
	Store    *store.Store              // optional persistence
	Verify   verify.Config
}

// Pipeline runs discoveries. Safe for concurrent use.
type Pipeline struct {
	source   adsource.Source
	refiner  keywords.Refiner
	searcher aggregate.DomainSearcher
	store    *store.Store
	verify   verify.Config
	limiter  *rate.Limiter
	validate *validator.Validate
}

// New assembles a Pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		source:   cfg.Source,
		refiner:  cfg.Refiner,
		searcher: cfg.Searcher,
		store:    cfg.Store,
		verify:   cfg.Verify,
		limiter:  rate.NewLimiter(rate.Every(interBatchDelay), 1),
		validate: validator.New(),
	}
}

// Discover runs the full pipeline for one brand. Time exhaustion truncates
// stages and still returns a successful partial report; only malformed input
// or an unresolvable brand domain yields Success=false.
func (p *Pipeline) Discover(ctx context.Context, opts Options) (*types.DiscoveryReport, error) {
	if err := p.validate.Struct(&opts); err != nil {
		return nil, &Error{Message: "invalid discovery options", Cause: err}
	}
	opts.applyDefaults()

	start := time.Now()
	runID := uuid.New()
	budget := NewBudget(opts.Timeout)
	ctx, cancel := budget.Context(ctx)
	defer cancel()

	report := &types.DiscoveryReport{
		Stats: types.ScanStats{MethodCounts: make(map[string]int)},
	}
	emit := func(stage, message string, content any) {
		if opts.Verbose {
			log.Printf("[PIPELINE] %s: %s", stage, message)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(ProgressEvent{Stage: stage, Message: message, RunID: runID.String(), Content: content})
		}
	}

	// Stage 1: search the brand name itself.
	emit(StageBrandSearch, fmt.Sprintf("Searching ads for %q", opts.Brand), nil)
	brandAds, err := p.source.Search(ctx, adsource.Query{
		Terms:      opts.Brand,
		Countries:  opts.Countries,
		MatchMode:  adsource.MatchExactPhrase,
		MaxResults: opts.MaxAds,
	})
	if err != nil && len(brandAds) == 0 {
		report.Error = fmt.Sprintf("ad search for %q failed: %v", opts.Brand, err)
		report.Stats.Duration = time.Since(start)
		return report, nil
	}
	report.Stats.AdsScanned += len(brandAds)

	// Stage 2: resolve the brand's own domain.
	domain := aggregate.ResolveBrandDomain(brandAds)
	if domain == "" && p.searcher != nil {
		found, err := p.searcher.FindOfficialDomain(ctx, opts.Brand)
		if err == nil {
			domain = found
			emit(StageDomain, fmt.Sprintf("Resolved brand domain via web search: %s", domain), nil)
		} else if opts.Verbose {
			log.Printf("[PIPELINE] Web search fallback failed: %v", err)
		}
	}
	if domain == "" {
		report.Error = fmt.Sprintf("Could not find brand domain for %q", opts.Brand)
		report.Stats.Duration = time.Since(start)
		return report, nil
	}
	profile := aggregate.BuildProfile(opts.Brand, brandAds, domain)
	report.Brand = profile
	emit(StageDomain, fmt.Sprintf("Brand domain: %s (%d official pages)", domain, len(profile.OfficialPageIDs)), profile)

	// Stage 3: mine keywords from the brand's own ad copy and widen the search.
	allAds := brandAds
	if budget.PastBuffer(searchBuffer) {
		report.Stats.StagesSkipped = append(report.Stats.StagesSkipped, StageKeywordSearch)
	} else {
		words := p.mineKeywords(ctx, brandAds, profile, &opts)
		report.Keywords = words
		emit(StageKeywords, fmt.Sprintf("Mined %d keywords", len(words)), words)

		extra, truncated := p.searchKeywords(ctx, budget, words, &opts)
		allAds = append(allAds, extra...)
		report.Stats.AdsScanned += len(extra)
		if truncated {
			report.Stats.StagesSkipped = append(report.Stats.StagesSkipped, StageKeywordSearch)
		}
		emit(StageKeywordSearch, fmt.Sprintf("Keyword searches added %d ads", len(extra)), nil)
	}

	// Stage 4: aggregate candidates.
	candidates := aggregate.Aggregate(allAds, profile)
	report.Stats.DomainsDiscovered = len(candidates)
	if len(candidates) > opts.MaxDomains {
		candidates = candidates[:opts.MaxDomains]
	}
	emit(StageAggregate, fmt.Sprintf("Aggregated %d candidate domains", report.Stats.DomainsDiscovered), nil)

	// Stage 5: verify candidates in batches.
	results, truncated := p.verifyCandidates(ctx, budget, candidates, profile, allAds, opts.Verbose)
	report.Stats.UniqueDomainsChecked = len(results)
	if truncated {
		report.Stats.StagesSkipped = append(report.Stats.StagesSkipped, StageVerify)
	}

	// Stage 6: assemble the report.
	assembleReport(report, profile, allAds, candidates, results, opts.MinConfidence)
	report.Success = true
	report.Stats.Duration = time.Since(start)
	emit(StageReport, fmt.Sprintf("Found %d matches across %d pages", report.Stats.MatchesFound, len(report.ThirdPartyPages)), nil)

	if p.store != nil {
		if err := p.store.SaveReport(ctx, runID, report); err != nil {
			log.Printf("[PIPELINE] Warning: failed to persist report: %v", err)
		}
	}
	return report, nil
}

// mineKeywords generates ranked keywords from the brand's ad copy and
// optionally re-ranks them through the refiner. Refinement failures fall back
// to the mined list.
func (p *Pipeline) mineKeywords(ctx context.Context, ads []types.AdRecord, profile *types.BrandProfile, opts *Options) []string {
	texts := make([]keywords.AdText, 0, len(ads))
	for i := range ads {
		texts = append(texts, keywords.AdText{
			Body:        ads[i].Body,
			Title:       ads[i].LinkTitle,
			Description: ads[i].LinkDescription,
		})
	}
	mined := keywords.Generate(texts, opts.Brand, opts.MaxKeywords)
	words := keywords.Words(mined)

	if p.refiner != nil && len(words) > 0 {
		pageName := ""
		if len(profile.OfficialPageIDs) > 0 {
			pageName = pageNameFor(ads, profile.OfficialPageIDs[0])
		}
		refined, err := p.refiner.Refine(ctx, words, opts.Brand, pageName)
		if err != nil {
			if opts.Verbose {
				log.Printf("[PIPELINE] Keyword refinement failed, using mined list: %v", err)
			}
		} else if len(refined) > 0 {
			words = refined
			if len(words) > opts.MaxKeywords {
				words = words[:opts.MaxKeywords]
			}
		}
	}
	return words
}

// searchKeywords runs one unordered-match search per keyword in rate-limited
// batches. It returns the merged extra ads and whether the budget truncated
// the stage.
func (p *Pipeline) searchKeywords(ctx context.Context, budget *Budget, words []string, opts *Options) ([]types.AdRecord, bool) {
	var all []types.AdRecord
	for offset := 0; offset < len(words); offset += batchSize {
		if budget.PastBuffer(searchBuffer) || ctx.Err() != nil {
			return all, true
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return all, true
		}

		batch := words[offset:min(offset+batchSize, len(words))]
		batchResults := make([][]types.AdRecord, len(batch))
		g, gCtx := errgroup.WithContext(ctx)
		for i, word := range batch {
			g.Go(func() error {
				ads, err := p.source.Search(gCtx, adsource.Query{
					Terms:      word,
					Countries:  opts.Countries,
					MatchMode:  adsource.MatchKeywordUnordered,
					MaxResults: opts.MaxAds,
				})
				if err != nil && opts.Verbose {
					log.Printf("[PIPELINE] Keyword search %q failed: %v", word, err)
				}
				batchResults[i] = ads
				return nil
			})
		}
		_ = g.Wait()
		for _, ads := range batchResults {
			all = append(all, ads...)
		}
	}
	return all, false
}

// verifyCandidates runs the verification cascade over candidates in
// rate-limited batches, merging results serially between batches. The
// rendered fallback is dropped when too little time remains for it.
func (p *Pipeline) verifyCandidates(ctx context.Context, budget *Budget, candidates []*types.CandidateDomain, profile *types.BrandProfile, ads []types.AdRecord, verbose bool) ([]*types.VerificationResult, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	cfg := p.verify
	cfg.Verbose = verbose
	if p.store != nil {
		cfg.Cache = p.store
	}
	if budget.PastBuffer(renderBuffer) {
		cfg.Renderer = nil
	}
	verifier := verify.New(cfg)

	var results []*types.VerificationResult
	for offset := 0; offset < len(candidates); offset += batchSize {
		if budget.PastBuffer(verifyBuffer) || ctx.Err() != nil {
			return results, true
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return results, true
		}

		batch := candidates[offset:min(offset+batchSize, len(candidates))]
		batchResults := make([]*types.VerificationResult, len(batch))
		g, gCtx := errgroup.WithContext(ctx)
		for i, cand := range batch {
			g.Go(func() error {
				res := verifier.Verify(gCtx, cand.Domain, profile, &verify.Evidence{
					Ads:      adsForPages(ads, cand.PageIDs),
					FullURLs: cand.FullURLs,
					PageIDs:  cand.PageIDs,
				})
				res.PageIDs = cand.PageIDs
				res.AdCount = cand.AdCount
				batchResults[i] = res
				return nil
			})
		}
		_ = g.Wait()
		results = append(results, batchResults...)
	}
	return results, false
}

// assembleReport folds verification results into the final report: page
// matches deduplicated by page with the highest confidence winning, domain
// lists split by match kind, and top landing pages by observed frequency.
func assembleReport(report *types.DiscoveryReport, profile *types.BrandProfile, ads []types.AdRecord, candidates []*types.CandidateDomain, results []*types.VerificationResult, minConfidence float64) {
	pageNames := make(map[string]string)
	pageAdCounts := make(map[string]int)
	for i := range ads {
		if ads[i].PageID == "" {
			continue
		}
		if pageNames[ads[i].PageID] == "" {
			pageNames[ads[i].PageID] = ads[i].PageName
		}
		pageAdCounts[ads[i].PageID]++
	}

	for _, id := range profile.OfficialPageIDs {
		report.OfficialPages = append(report.OfficialPages, types.PageMatch{
			PageID:     id,
			PageName:   pageNames[id],
			Kind:       types.MatchDirect,
			Confidence: 1.0,
			Domains:    []string{profile.Domain},
			AdCount:    pageAdCounts[id],
		})
	}

	landingCounts := make(map[string]int)
	byDomain := make(map[string]*types.CandidateDomain, len(candidates))
	for _, c := range candidates {
		byDomain[c.Domain] = c
	}

	pages := make(map[string]*types.PageMatch)
	for _, res := range results {
		if !res.Match || res.Confidence < minConfidence {
			continue
		}
		report.Stats.MatchesFound++
		report.Stats.MethodCounts[string(res.Kind)]++

		switch res.Kind {
		case types.MatchPresellCTA, types.MatchCheckout:
			report.PresellDomains = append(report.PresellDomains, res.Domain)
		case types.MatchRedirect:
			report.RedirectDomains = append(report.RedirectDomains, res.Domain)
		default:
			report.ShopDomains = append(report.ShopDomains, res.Domain)
		}

		if cand := byDomain[res.Domain]; cand != nil {
			for u, n := range cand.FullURLs {
				landingCounts[u] += n
			}
		}

		for _, pageID := range res.PageIDs {
			if profile.HasOfficialPage(pageID) {
				continue
			}
			pm, ok := pages[pageID]
			if !ok {
				pm = &types.PageMatch{
					PageID:   pageID,
					PageName: pageNames[pageID],
					AdCount:  pageAdCounts[pageID],
				}
				pages[pageID] = pm
			}
			if res.Confidence > pm.Confidence {
				pm.Confidence = res.Confidence
				pm.Kind = res.Kind
			}
			pm.Domains = appendUnique(pm.Domains, res.Domain)
		}
	}

	for _, pm := range pages {
		report.ThirdPartyPages = append(report.ThirdPartyPages, *pm)
	}
	sort.Slice(report.ThirdPartyPages, func(i, j int) bool {
		a, b := report.ThirdPartyPages[i], report.ThirdPartyPages[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.PageID < b.PageID
	})

	report.TopLandingPages = topByCount(landingCounts, 10)
}

// adsForPages filters ads down to those belonging to the given pages. A nil
// ad slice yields nil; verification evidence tolerates that.
func adsForPages(ads []types.AdRecord, pageIDs []string) []types.AdRecord {
	if len(ads) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(pageIDs))
	for _, id := range pageIDs {
		wanted[id] = true
	}
	var out []types.AdRecord
	for i := range ads {
		if wanted[ads[i].PageID] {
			out = append(out, ads[i])
		}
	}
	return out
}

func pageNameFor(ads []types.AdRecord, pageID string) string {
	for i := range ads {
		if ads[i].PageID == pageID {
			return ads[i].PageName
		}
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func topByCount(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
