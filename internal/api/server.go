package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/Dutchthenomad/rugsdata/internal/broadcast"
	"github.com/Dutchthenomad/rugsdata/internal/cache"
	"github.com/Dutchthenomad/rugsdata/internal/gamestate"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/schema"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
	"github.com/Dutchthenomad/rugsdata/internal/verifier"
)

// Deps bundles the collaborators the REST/WS surface reads from. All are
// read-only from this package's perspective except Verifier, which is the
// single mutating route's write path.
type Deps struct {
	Store       *storage.Store
	Tracker     *gamestate.Tracker
	Hub         *broadcast.Hub
	Metrics     *metrics.Counters
	Registry    *schema.Registry
	Verifier    *verifier.Service
	Cache       *cache.LiveState
	CORSOrigins []string
	Logger      *slog.Logger

	// StartedAt marks process start for reference; Metrics already tracks
	// uptime, this is kept for readiness payloads that want a raw instant.
	StartedAt time.Time
}

// NewServer builds a configured *http.Server exposing the REST surface
// and the downstream WebSocket upgrade, with explicit timeouts on one
// handler for the whole listen address.
func NewServer(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // the WS upgrade route holds its connection open indefinitely
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewRouter builds the chi router. Every route lives under /api per §4.8.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	// The sole mutating route re-simulates a full game trajectory; a
	// steady rate cap keeps a burst of verify requests from starving the
	// verifier's own bounded worker pool. 1 req/s with a burst of 3 is
	// generous for a human-driven admin/debug tool, tight against a script.
	h := &handler{deps: deps, verifyLimiter: rate.NewLimiter(rate.Limit(1), 3)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(corsMiddleware(deps.CORSOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.health)
		api.Get("/readiness", h.readiness)
		api.Get("/metrics", h.metrics)
		api.Get("/connection", h.connection)
		api.Get("/live", h.live)
		api.Get("/snapshots", h.snapshots)

		api.Get("/games", h.listGames)
		api.Get("/games/current", h.currentGame)
		api.Get("/games/{id}", h.getGame)
		api.Get("/games/{id}/quality", h.gameQuality)
		api.Get("/games/{id}/verification", h.gameVerification)

		api.Get("/ohlc", h.ohlc)
		api.Get("/god-candles", h.godCandles)

		api.Get("/prng/tracking", h.prngTracking)
		api.Post("/prng/verify/{id}", h.prngVerify)

		api.Get("/schemas", h.schemas)

		api.Get("/ws/stream", h.wsStream)
	})

	return r
}

// corsMiddleware is a minimal allow-list CORS layer; an empty or missing
// origin list allows every origin.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handler holds Deps and implements every route.
type handler struct {
	deps          Deps
	verifyLimiter *rate.Limiter
}

// Shutdown drains the hub and stops accepting new work; the caller (the
// daemon's shutdown sequence) is responsible for http.Server.Shutdown.
func (h *handler) Shutdown(ctx context.Context) error {
	h.deps.Hub.Shutdown()
	return nil
}
