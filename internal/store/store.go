// Package store provides optional PostgreSQL persistence: a TTL page cache
// for fetched HTML and finished discovery reports. Every caller treats a nil
// *Store as "no persistence configured".
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tobias/adscout/internal/types"
)

// DefaultPageTTL is how long cached page HTML stays valid.
const DefaultPageTTL = 24 * time.Hour

// Store wraps a PostgreSQL connection pool.
type Store struct {
	pool    *pgxpool.Pool
	pageTTL time.Duration
}

// Connect establishes a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, pageTTL: DefaultPageTTL}, nil
}

// SetPageTTL overrides the page cache TTL.
func (s *Store) SetPageTTL(ttl time.Duration) {
	if ttl > 0 {
		s.pageTTL = ttl
	}
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the two tables the store uses if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS page_cache (
			url        TEXT PRIMARY KEY,
			final_url  TEXT NOT NULL DEFAULT '',
			html       TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS discovery_reports (
			id         UUID PRIMARY KEY,
			brand      TEXT NOT NULL,
			report     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CachedPage is one page cache entry.
type CachedPage struct {
	URL      string
	FinalURL string
	HTML     string
}

// GetPage returns a cached page, or nil when the entry is missing or expired.
func (s *Store) GetPage(ctx context.Context, url string) (*CachedPage, error) {
	if s == nil {
		return nil, nil
	}
	var page CachedPage
	err := s.pool.QueryRow(ctx,
		`SELECT url, final_url, html FROM page_cache
		 WHERE url = $1 AND fetched_at > NOW() - make_interval(secs => $2)`,
		url, s.pageTTL.Seconds(),
	).Scan(&page.URL, &page.FinalURL, &page.HTML)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}
	return &page, nil
}

// PutPage upserts a page cache entry, refreshing its fetch time.
func (s *Store) PutPage(ctx context.Context, page *CachedPage) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO page_cache (url, final_url, html, fetched_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (url) DO UPDATE SET final_url = $2, html = $3, fetched_at = NOW()`,
		page.URL, page.FinalURL, page.HTML,
	)
	if err != nil {
		return fmt.Errorf("failed to cache page: %w", err)
	}
	return nil
}

// SaveReport persists a finished discovery report under runID.
func (s *Store) SaveReport(ctx context.Context, runID uuid.UUID, report *types.DiscoveryReport) error {
	if s == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	brand := ""
	if report.Brand != nil {
		brand = report.Brand.Name
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_reports (id, brand, report)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET brand = $2, report = $3, created_at = NOW()`,
		runID, brand, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a persisted report by run ID; nil when absent.
func (s *Store) GetReport(ctx context.Context, runID uuid.UUID) (*types.DiscoveryReport, error) {
	if s == nil {
		return nil, nil
	}
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM discovery_reports WHERE id = $1`, runID,
	).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	var report types.DiscoveryReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
