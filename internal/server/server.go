package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/crewmatch/internal/db"
	"github.com/ziadkadry99/crewmatch/internal/logctx"
	"github.com/ziadkadry99/crewmatch/internal/metrics"
	"github.com/ziadkadry99/crewmatch/internal/rebuild"
	"github.com/ziadkadry99/crewmatch/internal/records"
	"github.com/ziadkadry99/crewmatch/internal/search"
	"github.com/ziadkadry99/crewmatch/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Deps are the services the HTTP surface is built on. Nil services leave
// their routes unregistered.
type Deps struct {
	DB        *db.DB
	Records   *records.Store
	Vectors   vectordb.Store
	Engine    *search.Engine
	Rebuilder *rebuild.Rebuilder
	Logger    *slog.Logger
}

// Server is the crewmatch HTTP API.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New creates a server and registers every route its deps allow.
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.deps.Logger))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Rebuilds run as long as they need; everything else is bounded.
	if s.deps.Rebuilder != nil {
		rebuild.RegisterRoutes(r, s.deps.Rebuilder)
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if s.deps.Records != nil {
			records.RegisterRoutes(r, s.deps.Records)
		}
	})
	// The match websocket lives outside the timeout group.
	if s.deps.Engine != nil {
		search.RegisterRoutes(r, s.deps.Engine, s.deps.Vectors)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unavailable","error":%q}`, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger stores a request-scoped logger in the context and logs each
// request when it completes.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := base.With("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logctx.With(r.Context(), log)))

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.deps.Logger.Info("crewmatch server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
