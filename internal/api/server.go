// Package api exposes the validation pipeline and the run audit trail over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-validator/internal/audio"
	"github.com/sells-group/lead-validator/internal/model"
	"github.com/sells-group/lead-validator/internal/observe"
	"github.com/sells-group/lead-validator/internal/pipeline"
	"github.com/sells-group/lead-validator/internal/store"
)

// Runner validates one recording.
type Runner interface {
	Run(ctx context.Context, audio model.Audio) (*pipeline.Result, error)
}

// DefaultMaxUploadBytes caps multipart uploads when Options leaves it unset.
const DefaultMaxUploadBytes = 100 << 20

// Options configures a Server.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty disables CORS.
	CORSOrigins []string
	// MaxUploadBytes caps the request body of POST /v1/validate.
	MaxUploadBytes int64
	// MetricsHandler serves /metrics when non-nil. It is not authenticated.
	MetricsHandler http.Handler
	// Metrics records request latency. Nil uses observe.Default.
	Metrics *observe.Metrics
	// RefSchemes lists the schemes a JSON {"ref"} body may use. Empty
	// rejects every reference.
	RefSchemes []string
	// RefRoot confines "file" references to one directory tree.
	RefRoot string
}

// Server routes API requests.
type Server struct {
	router  *chi.Mux
	runner  Runner
	loader  audio.Source
	store   store.Store
	auth    *Authenticator
	metrics *observe.Metrics
	refs    refPolicy
	opts    Options
}

// NewServer builds the router. loader may be nil, which disables
// validation by reference. st may be store.Nop.
func NewServer(runner Runner, loader audio.Source, st store.Store, auth *Authenticator, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.Default()
	}

	s := &Server{
		router:  chi.NewRouter(),
		runner:  runner,
		loader:  loader,
		store:   st,
		auth:    auth,
		metrics: opts.Metrics,
		refs:    newRefPolicy(opts.RefSchemes, opts.RefRoot),
		opts:    opts,
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/validate", s.validate)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// logRequests logs each request and records its latency against the
// matched route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, status, elapsed)

		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
