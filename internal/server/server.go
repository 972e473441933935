// Package server provides the HTTP front door for asynchronous discovery
// runs: start a job, poll its status, or stream its progress.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tobias/adscout/internal/pipeline"
	"github.com/tobias/adscout/internal/store"
	"github.com/tobias/adscout/internal/types"
)

// Discoverer runs one discovery. Satisfied by *pipeline.Pipeline.
type Discoverer interface {
	Discover(ctx context.Context, opts pipeline.Options) (*types.DiscoveryReport, error)
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	pipeline   Discoverer
	registry   *Registry
	store      *store.Store
	// jobTimeout bounds each job's discovery run.
	jobTimeout time.Duration
}

// Config holds server configuration. Store is optional; without it the
// reports endpoint always responds 404.
type Config struct {
	Port       int
	Pipeline   Discoverer
	Store      *store.Store
	JobTimeout time.Duration
}

// New creates a server instance.
func New(cfg Config) *Server {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	s := &Server{
		pipeline:   cfg.Pipeline,
		registry:   NewRegistry(),
		store:      cfg.Store,
		jobTimeout: cfg.JobTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/discover", s.handleDiscover)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/jobs/{id}/events", s.handleJobEvents)
	mux.HandleFunc("GET /api/reports/{id}", s.handleReport)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open for the whole job
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the configured routes; tests mount this on httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until interrupted, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.registry.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the job registry; used by tests that never call Start.
func (s *Server) Close() {
	s.registry.Close()
}

// discoverRequest is the POST /api/discover body.
type discoverRequest struct {
	Brand          string   `json:"brand"`
	Countries      []string `json:"countries,omitempty"`
	MaxAds         int      `json:"max_ads,omitempty"`
	MaxKeywords    int      `json:"max_keywords,omitempty"`
	MaxDomains     int      `json:"max_domains,omitempty"`
	MinConfidence  float64  `json:"min_confidence,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Brand == "" {
		s.errorResponse(w, http.StatusBadRequest, "brand is required")
		return
	}

	timeout := s.jobTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	job := s.registry.Create(req.Brand)
	opts := pipeline.Options{
		Brand:         req.Brand,
		Countries:     req.Countries,
		MaxAds:        req.MaxAds,
		MaxKeywords:   req.MaxKeywords,
		MaxDomains:    req.MaxDomains,
		MinConfidence: req.MinConfidence,
		Timeout:       timeout,
		OnProgress: func(ev pipeline.ProgressEvent) {
			s.registry.Publish(job.ID, ev)
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Minute)
		defer cancel()
		report, err := s.pipeline.Discover(ctx, opts)
		if err != nil {
			s.registry.Fail(job.ID, err.Error())
			return
		}
		s.registry.Complete(job.ID, report)
	}()

	s.jsonResponse(w, http.StatusAccepted, job)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, ok := s.registry.Get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleJobEvents streams the job's progress as Server-Sent Events, ending
// with a terminal complete event.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, ok := s.registry.Get(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, cancelSub, live := s.registry.Subscribe(id)
	if !live {
		// Already finished; emit the terminal event and return.
		sse.WriteComplete(job.ID.String(), string(job.Status))
		return
	}
	defer cancelSub()

	for {
		select {
		case ev, open := <-events:
			if !open {
				final, _ := s.registry.Get(id)
				sse.WriteComplete(final.ID.String(), string(final.Status))
				return
			}
			if err := sse.WriteEvent("progress", ev); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleReport serves a persisted report by run ID. Jobs outlive the
// in-memory registry only when a store is configured.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid report id")
		return
	}
	report, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "report not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
