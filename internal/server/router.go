package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/pkg/config"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - POST /internal/pseudonymize    - tokenize real text (bearer auth)
//   - POST /internal/depseudonymize  - restore real values (bearer auth)
//   - DELETE /internal/session/{id}  - destroy a session (bearer auth)
//   - POST /api/v1/preview           - operator review page
//   - POST /api/v1/extract           - consent-gated extraction
//   - GET /health, /ready, /live     - probes
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Minute))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	// Internal surface: real text crosses here, bearer token required
	r.Route("/internal", func(r chi.Router) {
		r.Use(jwtAuth(cfg.JWTSecret))
		r.Post("/pseudonymize", h.Pseudonymize)
		r.Post("/depseudonymize", h.Depseudonymize)
		r.Delete("/session/{id}", h.DestroySession)
	})

	// Operator surface
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/preview", h.Preview)
		r.Post("/extract", h.Extract)
	})

	// Health routes - unauthenticated
	r.Get("/health", h.Health)
	r.Get("/ready", h.Readiness)
	r.Get("/live", h.Liveness)

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}
