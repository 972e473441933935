// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags.
type Config struct {
	// Ad source
	AccessToken string   `json:"access_token,omitempty"` // Ad library API access token
	Countries   []string `json:"countries,omitempty"`    // ISO country codes to search

	// Limits
	MaxAds         int     `json:"max_ads,omitempty"`         // Maximum ads per search
	MaxKeywords    int     `json:"max_keywords,omitempty"`    // Maximum mined keywords
	MaxDomains     int     `json:"max_domains,omitempty"`     // Maximum candidate domains verified
	MinConfidence  float64 `json:"min_confidence,omitempty"`  // Report inclusion floor (0.0-1.0)
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"` // Whole-run deadline

	// Behavior
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Enables keyword refinement
	SearchAPIKey string `json:"search_api_key,omitempty"` // Google Custom Search key
	SearchCX     string `json:"search_cx,omitempty"`      // Custom Search engine ID
	UseBrowser   bool   `json:"use_browser,omitempty"`    // Enable the rendered-page fallback
	Verbose      bool   `json:"verbose,omitempty"`        // Print detailed debug information
	DatabaseURL  string `json:"database_url,omitempty"`   // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxAds < 0 {
		return fmt.Errorf("config error: 'max_ads' must be non-negative")
	}
	if c.MaxKeywords < 0 {
		return fmt.Errorf("config error: 'max_keywords' must be non-negative")
	}
	if c.MaxDomains < 0 {
		return fmt.Errorf("config error: 'max_domains' must be non-negative")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("config error: 'min_confidence' must be between 0 and 1")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'timeout_seconds' must be non-negative")
	}
	for _, country := range c.Countries {
		if len(country) != 2 {
			return fmt.Errorf("config error: country code %q is not a two-letter ISO code", country)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.AccessToken == "" {
		result.AccessToken = defaults.AccessToken
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchCX == "" {
		result.SearchCX = defaults.SearchCX
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if len(result.Countries) == 0 {
		result.Countries = defaults.Countries
	}

	// Int fields: use default if zero
	if result.MaxAds == 0 {
		result.MaxAds = defaults.MaxAds
	}
	if result.MaxKeywords == 0 {
		result.MaxKeywords = defaults.MaxKeywords
	}
	if result.MaxDomains == 0 {
		result.MaxDomains = defaults.MaxDomains
	}
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}

	// Float fields
	if result.MinConfidence == 0 {
		if defaults.MinConfidence > 0 {
			result.MinConfidence = defaults.MinConfidence
		} else {
			result.MinConfidence = 0.70 // Report inclusion floor
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
