package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/updownlabs/updown/internal/server/handler"
	"github.com/updownlabs/updown/internal/server/middleware"
	"github.com/updownlabs/updown/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Rounds    *handler.RoundHandler
	Positions *handler.PositionHandler
	Settle    *handler.SettleHandler
}

// Server is the HTTP + WebSocket API for the prediction market ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// wires up middleware (logging, CORS, auth) plus the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.Health)

	// Market endpoints.
	mux.HandleFunc("POST /api/markets", handlers.Markets.Create)
	mux.HandleFunc("GET /api/markets", handlers.Markets.List)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.Get)

	// Round endpoints.
	mux.HandleFunc("GET /api/markets/{id}/rounds", handlers.Rounds.List)
	mux.HandleFunc("GET /api/markets/{id}/rounds/current", handlers.Rounds.Current)
	mux.HandleFunc("GET /api/markets/{id}/rounds/{round}", handlers.Rounds.Get)
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/resolve", handlers.Rounds.Resolve)

	// Position endpoints.
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/bearish", handlers.Positions.Bearish)
	mux.HandleFunc("POST /api/markets/{id}/rounds/{round}/bullish", handlers.Positions.Bullish)
	mux.HandleFunc("GET /api/markets/{id}/rounds/{round}/position", handlers.Positions.Get)
	mux.HandleFunc("GET /api/markets/{id}/positions", handlers.Positions.History)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/markets/{id}/settle", handlers.Settle.Settle)
	mux.HandleFunc("GET /api/balances/{account}", handlers.Settle.Balance)
	mux.HandleFunc("GET /api/treasury", handlers.Settle.Treasury)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
