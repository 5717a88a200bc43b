// Package web serves the wespeaker page and its JSON/msgpack API.
//
// Routes:
//
//	GET  /                      three-tab page (extract, compare, model info)
//	GET  /api/model             model metadata
//	GET  /api/window/visibility which window inputs to show for ?type=
//	POST /api/uploads           store a clip (multipart "file")
//	POST /api/extract           speaker embedding of one clip
//	POST /api/compare           same-speaker judgement for two clips
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus exposition
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/haivivi/wespeaker/pkg/metrics"
	"github.com/haivivi/wespeaker/pkg/upload"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

//go:embed templates/*
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// DefaultAddr binds all interfaces on the demo port.
const DefaultAddr = "0.0.0.0:7860"

// previewRows is how many embedding values the page shows.
const previewRows = 10

// Config wires a Server. Extractor, Comparator and Uploads are required.
type Config struct {
	Extractor  *voiceprint.Extractor
	Comparator *voiceprint.Comparator
	Uploads    *upload.Registry

	// Metrics defaults to metrics.NoopMetrics.
	Metrics metrics.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP front end of the extractor and comparator.
type Server struct {
	extractor  *voiceprint.Extractor
	comparator *voiceprint.Comparator
	uploads    *upload.Registry
	metrics    metrics.Metrics
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	s := &Server{
		extractor:  cfg.Extractor,
		comparator: cfg.Comparator,
		uploads:    cfg.Uploads,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		mux:        http.NewServeMux(),
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.handle("GET /{$}", "index", s.handleIndex)
	s.handle("GET /api/model", "model", s.handleModel)
	s.handle("GET /api/window/visibility", "visibility", s.handleVisibility)
	s.handle("POST /api/uploads", "upload", s.handleUpload)
	s.handle("GET /api/uploads/{id}", "upload_get", s.handleUploadGet)
	s.handle("DELETE /api/uploads/{id}", "upload_delete", s.handleUploadDelete)
	s.handle("POST /api/extract", "extract", s.handleExtract)
	s.handle("POST /api/compare", "compare", s.handleCompare)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web server starting", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("web server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunSweeper removes uploads older than retention every interval until
// ctx is canceled.
func (s *Server) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 || retention <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.uploads.Sweep(ctx, retention)
			if err != nil {
				s.logger.Error("upload sweep failed", "error", err)
			}
			if n > 0 {
				s.metrics.ObserveSweep(n)
				s.logger.Info("upload sweep", "removed", n)
			}
		}
	}
}
