package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/websocket"
	"github.com/hyperion-energy/hyperion/pkg/common"
	"github.com/hyperion-energy/hyperion/pkg/controller"
	"github.com/hyperion-energy/hyperion/pkg/engine"
	"github.com/hyperion-energy/hyperion/pkg/log"
	"github.com/hyperion-energy/hyperion/pkg/proposal"
	"github.com/levenlabs/go-lflag"
)

// maxBodyBytes bounds request bodies; every request body is a small JSON
// object.
const maxBodyBytes = 64 << 10

// Server handles the HTTP API for configurator sessions and serves the
// reference simulation and proposal endpoints.
type Server struct {
	controller *controller.Controller
	engine     *engine.Engine
	writer     *proposal.Writer
	sessions   *registry
	upgrader   websocket.Upgrader

	listenAddr  string
	devOrigin   string
	idleTimeout time.Duration
	serverName  string
	httpServer  *http.Server

	metricsHandler http.Handler
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(c *controller.Controller, e *engine.Engine) *Server {
	srv := newServer(c, e)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	devOrigin := lflag.String("dev-origin", "", "Origin of the dev frontend allowed to call the API (e.g. http://localhost:5173)")
	idleTimeout := lflag.Duration("session-idle-timeout", 30*time.Minute, "Close sessions that have not been used for this long")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *devOrigin != "" {
			if _, err := url.Parse(*devOrigin); err != nil {
				panic(fmt.Errorf("invalid dev-origin url (%s): %w", *devOrigin, err))
			}
		}
		srv.devOrigin = *devOrigin
		if *idleTimeout <= 0 {
			panic(fmt.Sprintf("session-idle-timeout must be positive: %s", *idleTimeout))
		}
		srv.idleTimeout = *idleTimeout
	})

	return srv
}

func newServer(c *controller.Controller, e *engine.Engine) *Server {
	s := &Server{
		controller:  c,
		engine:      e,
		writer:      proposal.NewWriter(e),
		sessions:    newRegistry(),
		serverName:  "hyperion",
		idleTimeout: 30 * time.Minute,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetMetricsHandler serves h on /metrics. It must be called before Run.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metricsHandler = h
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	apiMux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	apiMux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	apiMux.HandleFunc("POST /api/sessions/{id}/edit", s.handleEdit)
	apiMux.HandleFunc("PUT /api/sessions/{id}/inputs", s.handleReplaceInputs)
	apiMux.HandleFunc("POST /api/sessions/{id}/proposal", s.handleGenerateProposal)
	apiMux.HandleFunc("GET /api/sessions/{id}/ws", s.handleStream)
	apiMux.HandleFunc("GET /api/fields", s.handleFields)
	apiMux.HandleFunc("POST /api/calculate", s.handleCalculate)
	apiMux.HandleFunc("POST /api/generate-proposal", s.handleReferenceProposal)
	apiMux.HandleFunc("GET /api/products", s.handleProducts)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.corsMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	h := s.requestIDMiddleware(s.securityHeadersMiddleware(mux))
	gz := gziphandler.GzipHandler(h)
	return s.revisionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the upgraded connection must not go through the gzip writer
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	}))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// every session is closed once the server is done, including streams
	defer s.sessions.closeAll()

	go s.reapIdleSessions(ctx)

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) reapIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(max(s.idleTimeout/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.sessions.reap(now.Add(-s.idleTimeout)); n > 0 {
				log.Ctx(ctx).InfoContext(ctx, "closed idle sessions", slog.Int("count", n))
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, struct {
		Error string `json:"error"`
	}{Error: msg}, code)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Modules map[string]string `json:"modules"`
}

// handleHealth reports the build and the versions of the components the
// server depends on.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "healthy",
		Version: common.Version(),
		Modules: map[string]string{
			"go":      runtime.Version(),
			"catalog": fmt.Sprintf("%d products", len(s.engine.Catalog().Products)),
		},
	}, http.StatusOK)
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
