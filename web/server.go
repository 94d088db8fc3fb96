// Package web serves the latest rendered report over HTTP.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eriehall.dev/gapfinder/engine"
)

// published is the immutable snapshot swapped in after each run.
type published struct {
	body        []byte
	generatedAt time.Time
	slots       int
}

// Server holds the HTTP surface. Publish may be called concurrently with
// request handling; readers always see a complete snapshot.
type Server struct {
	report atomic.Pointer[published]
	reg    *prometheus.Registry
}

func NewServer(reg *prometheus.Registry) *Server {
	return &Server{reg: reg}
}

// Publish encodes rep and makes it the report served to clients. The
// previous snapshot stays up if encoding fails.
func (s *Server) Publish(rep *engine.Report) error {
	body, err := rep.Encode()
	if err != nil {
		return err
	}
	s.report.Store(&published{
		body:        body,
		generatedAt: rep.GeneratedAt,
		slots:       rep.TotalSlots(),
	})
	return nil
}

// Router assembles the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/report", s.handleReport)
	if s.reg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap := s.report.Load()
	if snap == nil {
		http.Error(w, `{"error":"no report generated yet"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(snap.body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status      string     `json:"status"`
		GeneratedAt *time.Time `json:"report_generated_at,omitempty"`
		Slots       int        `json:"report_slots"`
	}{Status: "ok"}

	if snap := s.report.Load(); snap != nil {
		resp.GeneratedAt = &snap.generatedAt
		resp.Slots = snap.slots
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("failed to write health response", "error", err)
	}
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
