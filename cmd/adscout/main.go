// Package main provides the entry point for the adscout CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adscout",
	Short: "Brand ad-attribution discovery",
	Long:  "adscout finds every advertiser page promoting a brand in the ad transparency archive, including affiliates and presell pages, and emits confidence-scored matches.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
