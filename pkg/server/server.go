// Package server exposes a metrics registry over HTTP: the text exposition
// on the metrics path and a JSON health document on the health path.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/metricsd/metricsd/pkg/httputil"
	"github.com/metricsd/metricsd/pkg/logging"
	"github.com/metricsd/metricsd/pkg/metrics"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Config holds the HTTP server settings.
type Config struct {
	Host        string
	Port        int
	MetricsPath string
	HealthPath  string
}

// Health is the body served on the health path.
type Health struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	MetricsEndpoint string `json:"metrics_endpoint"`
	InstanceID      string `json:"instance_id"`
}

// Server serves one Registry.
type Server struct {
	cfg        Config
	reg        *metrics.Registry
	logger     *slog.Logger
	instanceID string
	scrapes    *scrapeMetrics
	handler    http.Handler
}

// New builds a server for reg and registers its self-instrumentation on reg.
func New(cfg Config, reg *metrics.Registry, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		reg:        reg,
		logger:     logging.Component(logger, "server"),
		instanceID: uuid.NewString(),
	}

	scrapes, err := newScrapeMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("register scrape metrics: %w", err)
	}
	s.scrapes = scrapes

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.MetricsPath, s.handleMetrics)
	mux.HandleFunc(cfg.HealthPath, s.handleHealth)
	s.handler = requestID(s.scrapes.middleware(mux, s.knownPath, s.logger))

	return s, nil
}

func (s *Server) knownPath(path string) bool {
	return path == s.cfg.MetricsPath || path == s.cfg.HealthPath
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// InstanceID returns the id reported on the health path.
func (s *Server) InstanceID() string { return s.instanceID }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening",
			"addr", ln.Addr().String(),
			"metrics_path", s.cfg.MetricsPath,
			"health_path", s.cfg.HealthPath,
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("metrics server stopped")
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	if r.URL.Path != s.cfg.MetricsPath {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no such path")
		return
	}

	var buf bytes.Buffer
	if _, err := s.reg.WriteTo(&buf); err != nil {
		s.logger.Error("render failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", metrics.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("scrape write failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Health{
		Status:          "ok",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		MetricsEndpoint: s.cfg.MetricsPath,
		InstanceID:      s.instanceID,
	})
}
