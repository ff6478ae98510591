// Package server exposes agents, sessions, and turn streams over HTTP.
// Turn events are delivered as server-sent events so clients see chunks,
// tool activity, and the terminal response in order.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/agentfusion/agentfusion/agent"
	"github.com/agentfusion/agentfusion/config"
	"github.com/agentfusion/agentfusion/session"
)

// Runtime is what the server needs from the component layer: the agent
// catalog, session persistence, and session-bound engines.
type Runtime interface {
	AgentNames() []string
	AgentConfig(name string) (*config.AgentConfig, error)
	Sessions() session.Service
	EngineForSession(name, sessionID string) (*agent.Engine, error)
}

// Server is the HTTP front end.
type Server struct {
	runtime Runtime
	addr    string
	logger  *slog.Logger
}

// New builds a server on top of runtime.
func New(runtime Runtime, cfg *config.ServerConfig) *Server {
	host, port := "0.0.0.0", 8080
	if cfg != nil {
		if cfg.Host != "" {
			host = cfg.Host
		}
		if cfg.Port != 0 {
			port = cfg.Port
		}
	}
	return &Server{
		runtime: runtime,
		addr:    fmt.Sprintf("%s:%d", host, port),
		logger:  slog.Default().With("component", "server"),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{session}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/messages", s.handleListMessages)
				r.Post("/messages", s.handlePostMessage)
				r.Delete("/messages", s.handleClearMessages)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
