package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobias/adscout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that runs discoveries asynchronously: POST /api/discover starts a job, GET /api/jobs/{id} polls it, and GET /api/jobs/{id}/events streams progress.`,
	RunE:  runServe,
}

var (
	servePort       int
	serveConfigPath string
	serveJobTimeout int
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to JSON config file")
	serveCmd.Flags().IntVar(&serveJobTimeout, "job-timeout", 600, "Default per-job deadline in seconds")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(serveConfigPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	p, st, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{
		Port:       servePort,
		Pipeline:   p,
		Store:      st,
		JobTimeout: time.Duration(serveJobTimeout) * time.Second,
	})
	return srv.Start()
}
