package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/crosspostme/crosspost-agent/internal/backend"
	"github.com/crosspostme/crosspost-agent/internal/catalog"
	"github.com/crosspostme/crosspost-agent/internal/connection"
	"github.com/crosspostme/crosspost-agent/internal/handler"
	"github.com/crosspostme/crosspost-agent/internal/logger"
	"github.com/crosspostme/crosspost-agent/internal/metrics"
	"github.com/crosspostme/crosspost-agent/internal/sse"
	"github.com/crosspostme/crosspost-agent/internal/store"
)

type Server struct {
	httpServer  *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new Server instance wiring the connection API.
func NewServer(port int, apiKey string, trustedProxies []string, client backend.Client, catalogService catalog.Service, connectedStore store.Store, connectionService connection.Service, hub *sse.Hub) *Server {
	r := chi.NewRouter()

	// Middleware stack
	// Chi middleware executes in order defined (outermost to innermost)
	detector := NewSuspiciousActivityDetector()
	rateLimiter := NewRateLimiter(DefaultRateLimiterConfig())

	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(apiKey, trustedProxies, detector))
	r.Use(rateLimiter.Middleware(trustedProxies))
	r.Use(RequestSizeLimitMiddleware(MaxRequestBodyBytes))
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(client))

	// Version endpoint (public, for deployment verification)
	r.Get("/version", handler.HandleVersion())

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// OAuth redirect target; the browser popup lands here
	r.Get("/oauth/callback", handler.HandleOAuthCallback(connectionService))

	// API v1 routes
	platformHandlers := handler.NewPlatformHandlers(catalogService, connectedStore, connectionService)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/platforms", func(r chi.Router) {
			r.Get("/", platformHandlers.HandleListPlatforms())
			r.Get("/connected", platformHandlers.HandleConnectedPlatforms())
			r.Post("/{platform}/connect", platformHandlers.HandleConnect())
			r.Delete("/{platform}", platformHandlers.HandleDisconnect())
		})

		r.Route("/attempts", func(r chi.Router) {
			r.Get("/", platformHandlers.HandleListAttempts())
			r.Get("/{attemptID}", platformHandlers.HandleGetAttempt())
			r.Post("/{attemptID}/credentials", platformHandlers.HandleSubmitCredentials())
			r.Post("/{attemptID}/confirm", platformHandlers.HandleConfirmAttempt())
			r.Post("/{attemptID}/cancel", platformHandlers.HandleCancelAttempt())
		})

		// Live attempt and snapshot updates
		r.Get("/events", sse.Handler(hub))
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		rateLimiter: rateLimiter,
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK, // default status
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush passes through so SSE streaming keeps working behind the wrapper
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Skip logging for health check endpoints and metrics
		// Use HasPrefix to catch potential variations (e.g. /healthz/)
		if strings.HasPrefix(r.URL.Path, "/healthz") ||
			strings.HasPrefix(r.URL.Path, "/readyz") ||
			strings.HasPrefix(r.URL.Path, "/metrics") {
			next.ServeHTTP(w, r)
			return
		}

		// Generate unique request ID
		requestID := logger.GenerateRequestID()

		// Add request ID to context
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		// Get scoped logger
		log := logger.FromContext(ctx)

		log.Info(LogMsgRequestStarted,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
			"user_agent", r.UserAgent())

		// Sanitize headers for logging
		sanitizedHeaders := make(http.Header)
		for k, v := range r.Header {
			if strings.EqualFold(k, HeaderAPIKey) || strings.EqualFold(k, HeaderAuthorization) {
				sanitizedHeaders[k] = []string{RedactedValue}
			} else {
				sanitizedHeaders[k] = v
			}
		}
		log.Debug(LogMsgRequestHeaders, "headers", sanitizedHeaders)

		// Wrap response writer to capture status code
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Info(LogMsgRequestCompleted,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"duration", duration)
	})
}

// Start starts the server
func (s *Server) Start() error {
	logger.FromContext(context.Background()).Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully and halts the rate limiter's cleanup loop
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
