package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/gosuda/beacon/internal/api/ws"
	"github.com/gosuda/beacon/internal/auth"
	"github.com/gosuda/beacon/internal/authz"
	"github.com/gosuda/beacon/internal/config"
	"github.com/gosuda/beacon/internal/fanout"
	"github.com/gosuda/beacon/internal/ingest"
	"github.com/gosuda/beacon/internal/server/middleware"
)

// healthTimeout bounds each dependency ping on /healthz.
const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Broker is a fan-out transport that can be health checked.
type Broker interface {
	fanout.Broker
	Pinger
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	db         Pinger
	broker     Broker
	wsHub      *ws.Hub
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// cleanup of rate limiters.
func New(ctx context.Context, cfg *config.Config, readers ingest.Readers, db Pinger, broker Broker) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	authorizer := authz.New(readers.Projects, readers.Tasks, readers.Conversations)
	broadcaster := fanout.NewBroadcaster(fanout.NewDispatcher(broker), cfg.Ingest.PublishTimeout)
	verifier := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	hub := ws.NewHub(broker, authorizer, readers.Users, broadcaster, ws.Config{
		TypingRate:     cfg.WebSocket.TypingRate,
		TypingBurst:    cfg.WebSocket.TypingBurst,
		SendBuffer:     cfg.WebSocket.SendBuffer,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		OriginPatterns: originPatterns(cfg.Server.CORSOrigins),
	})

	s := &Server{
		router: router,
		db:     db,
		broker: broker,
		wsHub:  hub,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Service group for the host application's mutation notices.
	// 2. User group for end-user requests.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.ServiceKey(cfg.Ingest.ServiceKey))

			ingestConfig := huma.DefaultConfig("Beacon Ingest API", "1.0.0")
			ingestConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			ingestAPI := humachi.New(r, ingestConfig)
			registerIngestRoutes(ingestAPI, ingest.NewResolver(readers), broadcaster)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(verifier))
			r.Use(middleware.RateLimitByUser(ctx, 100, 200))

			apiConfig := huma.DefaultConfig("Beacon API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, authorizer)
		})
	})

	// WebSocket route. The IP limit runs before authentication so bad
	// tokens cannot be tried at full speed.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.WebSocket.ConnectRate, cfg.WebSocket.ConnectBurst))
		r.Use(middleware.Auth(verifier))
		r.Use(middleware.RateLimitByUser(ctx, cfg.WebSocket.ConnectRate, cfg.WebSocket.ConnectBurst))
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", s.healthz)

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

type healthStatus struct {
	Status      string            `json:"status"`
	Connections int64             `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Connections: s.wsHub.Connections()}
	code := http.StatusOK

	for name, p := range map[string]Pinger{"database": s.db, "broker": s.broker} {
		if p == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			if status.Checks == nil {
				status.Checks = make(map[string]string)
			}
			status.Checks[name] = err.Error()
			status.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// originPatterns converts CORS origins to the host patterns the WebSocket
// handshake checks. "*" allows any origin.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		patterns = append(patterns, o)
	}
	return patterns
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
