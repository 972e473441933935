package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobias/adscout/internal/config"
	"github.com/tobias/adscout/internal/pipeline"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover every advertiser page promoting a brand",
	Long:  "Searches the ad library for the brand, mines keywords from its own ad copy, widens the search, and verifies every candidate domain through the attribution cascade. Emits a JSON report.",
	RunE:  runDiscover,
}

var (
	discoverBrand         string
	discoverConfigPath    string
	discoverCountries     []string
	discoverMaxAds        int
	discoverMaxKeywords   int
	discoverMaxDomains    int
	discoverMinConfidence float64
	discoverTimeout       int
	discoverAccessToken   string
	discoverUseBrowser    bool
	discoverVerbose       bool
	discoverOutPath       string
)

func init() {
	discoverCmd.Flags().StringVarP(&discoverBrand, "brand", "b", "", "Brand name to discover (required)")
	discoverCmd.Flags().StringVarP(&discoverConfigPath, "config", "c", "", "Path to JSON config file")
	discoverCmd.Flags().StringSliceVar(&discoverCountries, "countries", nil, "ISO country codes to search (e.g. DE,AT)")
	discoverCmd.Flags().IntVar(&discoverMaxAds, "max-ads", 0, "Maximum ads per search")
	discoverCmd.Flags().IntVar(&discoverMaxKeywords, "max-keywords", 0, "Maximum mined keywords")
	discoverCmd.Flags().IntVar(&discoverMaxDomains, "max-domains", 0, "Maximum candidate domains to verify")
	discoverCmd.Flags().Float64Var(&discoverMinConfidence, "min-confidence", 0, "Report inclusion floor (0.0-1.0)")
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 0, "Whole-run deadline in seconds (0 = unlimited)")
	discoverCmd.Flags().StringVar(&discoverAccessToken, "access-token", "", "Ad library API access token (overrides META_ACCESS_TOKEN)")
	discoverCmd.Flags().BoolVar(&discoverUseBrowser, "use-browser", false, "Enable the rendered-page fallback (requires Chrome)")
	discoverCmd.Flags().BoolVarP(&discoverVerbose, "verbose", "v", false, "Print detailed progress information")
	discoverCmd.Flags().StringVarP(&discoverOutPath, "out", "o", "", "Write the report to a file instead of stdout")

	if err := discoverCmd.MarkFlagRequired("brand"); err != nil {
		panic(fmt.Sprintf("failed to mark brand flag as required: %v", err))
	}

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(discoverConfigPath)
	if err != nil {
		return err
	}
	applyDiscoverFlags(cmd, cfg)

	ctx := context.Background()
	p, _, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := p.Discover(ctx, pipeline.Options{
		Brand:         discoverBrand,
		Countries:     cfg.Countries,
		MaxAds:        cfg.MaxAds,
		MaxKeywords:   cfg.MaxKeywords,
		MaxDomains:    cfg.MaxDomains,
		MinConfidence: cfg.MinConfidence,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		Verbose:       cfg.Verbose,
	})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if discoverOutPath != "" {
		if err := os.WriteFile(discoverOutPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write report file %s: %w", discoverOutPath, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Report written to %s\n", discoverOutPath)
		return nil
	}

	_, _ = fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// applyDiscoverFlags overlays explicitly set flags onto the merged config.
// Flags always win over config file and environment.
func applyDiscoverFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("countries") {
		cfg.Countries = discoverCountries
	}
	if cmd.Flags().Changed("max-ads") {
		cfg.MaxAds = discoverMaxAds
	}
	if cmd.Flags().Changed("max-keywords") {
		cfg.MaxKeywords = discoverMaxKeywords
	}
	if cmd.Flags().Changed("max-domains") {
		cfg.MaxDomains = discoverMaxDomains
	}
	if cmd.Flags().Changed("min-confidence") {
		cfg.MinConfidence = discoverMinConfidence
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = discoverTimeout
	}
	if discoverAccessToken != "" {
		cfg.AccessToken = discoverAccessToken
	}
	if discoverUseBrowser {
		cfg.UseBrowser = true
	}
	if discoverVerbose {
		cfg.Verbose = true
	}
}
