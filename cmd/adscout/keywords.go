package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobias/adscout/internal/adsource"
	"github.com/tobias/adscout/internal/keywords"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Mine ranked keywords from a brand's own ad copy",
	Long:  "Searches the ad library for the brand and prints the ranked keyword list that the discovery pipeline would widen its search with. Useful for tuning before a full run.",
	RunE:  runKeywords,
}

var (
	keywordsBrand       string
	keywordsConfigPath  string
	keywordsCountries   []string
	keywordsMaxAds      int
	keywordsMax         int
	keywordsAccessToken string
	keywordsRefine      bool
)

func init() {
	keywordsCmd.Flags().StringVarP(&keywordsBrand, "brand", "b", "", "Brand name (required)")
	keywordsCmd.Flags().StringVarP(&keywordsConfigPath, "config", "c", "", "Path to JSON config file")
	keywordsCmd.Flags().StringSliceVar(&keywordsCountries, "countries", nil, "ISO country codes to search (e.g. DE,AT)")
	keywordsCmd.Flags().IntVar(&keywordsMaxAds, "max-ads", 0, "Maximum ads to scan")
	keywordsCmd.Flags().IntVar(&keywordsMax, "max-keywords", 0, "Maximum keywords to print")
	keywordsCmd.Flags().StringVar(&keywordsAccessToken, "access-token", "", "Ad library API access token (overrides META_ACCESS_TOKEN)")
	keywordsCmd.Flags().BoolVar(&keywordsRefine, "refine", false, "Re-rank keywords with the LLM refiner (requires GEMINI_API_KEY)")

	if err := keywordsCmd.MarkFlagRequired("brand"); err != nil {
		panic(fmt.Sprintf("failed to mark brand flag as required: %v", err))
	}

	rootCmd.AddCommand(keywordsCmd)
}

func runKeywords(cmd *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(keywordsConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("countries") {
		cfg.Countries = keywordsCountries
	}
	if cmd.Flags().Changed("max-ads") {
		cfg.MaxAds = keywordsMaxAds
	}
	if cmd.Flags().Changed("max-keywords") {
		cfg.MaxKeywords = keywordsMax
	}
	if keywordsAccessToken != "" {
		cfg.AccessToken = keywordsAccessToken
	}
	if cfg.AccessToken == "" {
		return fmt.Errorf("access token required: set --access-token, the config file, or META_ACCESS_TOKEN")
	}
	maxAds := cfg.MaxAds
	if maxAds == 0 {
		maxAds = 250
	}
	maxKeywords := cfg.MaxKeywords
	if maxKeywords == 0 {
		maxKeywords = 10
	}

	ctx := context.Background()
	source := adsource.NewMetaAdLibrary(cfg.AccessToken, 30*time.Second)

	ads, err := source.Search(ctx, adsource.Query{
		Terms:      keywordsBrand,
		Countries:  cfg.Countries,
		MatchMode:  adsource.MatchExactPhrase,
		MaxResults: maxAds,
	})
	if err != nil {
		return fmt.Errorf("ad search for %q failed: %w", keywordsBrand, err)
	}
	if len(ads) == 0 {
		return fmt.Errorf("no ads found for %q", keywordsBrand)
	}

	texts := make([]keywords.AdText, 0, len(ads))
	for i := range ads {
		texts = append(texts, keywords.AdText{
			Body:        ads[i].Body,
			Title:       ads[i].LinkTitle,
			Description: ads[i].LinkDescription,
		})
	}
	mined := keywords.Generate(texts, keywordsBrand, maxKeywords)

	if keywordsRefine {
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("--refine requires GEMINI_API_KEY or gemini_api_key in the config file")
		}
		refiner, err := keywords.NewGeminiRefiner(ctx, cfg.GeminiAPIKey, keywords.DefaultRefineModel)
		if err != nil {
			return fmt.Errorf("failed to create keyword refiner: %w", err)
		}
		defer func() { _ = refiner.Close() }()

		refined, err := refiner.Refine(ctx, keywords.Words(mined), keywordsBrand, "")
		if err != nil {
			return fmt.Errorf("keyword refinement failed: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Keywords for %q (%d ads scanned, refined):\n", keywordsBrand, len(ads))
		for i, word := range refined {
			_, _ = fmt.Fprintf(os.Stdout, "%2d. %s\n", i+1, word)
		}
		return nil
	}

	_, _ = fmt.Fprintf(os.Stdout, "Keywords for %q (%d ads scanned):\n", keywordsBrand, len(ads))
	for i, kw := range mined {
		_, _ = fmt.Fprintf(os.Stdout, "%2d. %-24s (score %d)\n", i+1, kw.Word, kw.Score)
	}
	return nil
}
