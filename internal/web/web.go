package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"daycal/internal/clock"
	"daycal/internal/config"
	appLog "daycal/internal/log"
	"daycal/internal/session"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// Server serves the calendar widget and its JSON API. Every request is
// bound to a browser session through a cookie.
type Server struct {
	cfg      *config.Config
	debug    bool
	mux      *http.ServeMux
	sessions *session.Store
	clock    clock.Clock
	tmpl     *template.Template
}

// NewServer constructs a new Server backed by sessions.
func NewServer(cfg *config.Config, sessions *session.Store, clk clock.Clock, debug bool) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	s := &Server{
		cfg:      cfg,
		debug:    debug,
		mux:      http.NewServeMux(),
		sessions: sessions,
		clock:    clk,
		tmpl:     tmpl,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the routed handler wrapped in logging and, when
// configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	return requestLogger(h)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /nav/prev", s.handlePrevMonth)
	s.mux.HandleFunc("POST /nav/next", s.handleNextMonth)
	s.mux.HandleFunc("POST /select", s.handleSelectDay)
	s.mux.HandleFunc("POST /events/new", s.handleOpenForm)
	s.mux.HandleFunc("POST /events/cancel", s.handleCancelForm)
	s.mux.HandleFunc("POST /events", s.handleAddEvent)

	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.Handle("GET /static/", s.staticFileServer())
}

// ListenAndServe binds cfg.Listen and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String(), "debug", s.debug)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// render executes the page template into a buffer first so that a template
// error still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html.tmpl", data); err != nil {
		appLog.Error("template render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// handlePreview serves the last PNG written by snapshot mode.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
