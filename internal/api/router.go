package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/api/middleware"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/config"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/engine"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/handlers"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/store"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/ws"
)

// NewRouter creates and configures the HTTP router hosting the socket
// endpoint and the read-only REST views.
func NewRouter(cfg *config.Config, logger zerolog.Logger, eng *engine.Engine, rooms store.RoomStore, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
		Whitelist:        cfg.RateLimitWhitelist,
		AutoBlockEnabled: cfg.AutoBlockEnabled,
	})
	r.Use(limiter.Middleware)

	// CORS - widgets embed on arbitrary customer sites
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(rooms, redisStore, eng.Registry())
	wsServer := ws.NewServer(eng, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// Socket endpoint: guests and staff both connect here and declare
	// themselves with an identify frame.
	r.Get("/ws", wsServer.Handle)

	// Read-only views
	r.Get("/rooms/{id}/messages", h.RoomHistory)
	r.Get("/queue", h.Queue)

	return r
}
