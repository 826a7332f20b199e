package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creditpool/gateway/middleware"
)

type Config struct {
	Service       CreditService
	History       HistoryImporter
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

// Rate limit buckets used by New.
const (
	BucketReads  = "reads"
	BucketWrites = "writes"
)

// New builds the API router. Reads are public; every POST requires a bearer
// token whose subject becomes the caller.
func New(cfg Config) (http.Handler, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("routes: credit service required")
	}
	if cfg.Authenticator == nil {
		return nil, fmt.Errorf("routes: authenticator required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: cfg.Service, history: cfg.History, logger: logger.With("component", "routes")}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(public chi.Router) {
			if cfg.RateLimiter != nil {
				public.Use(cfg.RateLimiter.Middleware(BucketReads))
			}
			h.mountPublic(public)
		})
		v1.Group(func(private chi.Router) {
			private.Use(cfg.Authenticator.Middleware)
			if cfg.RateLimiter != nil {
				private.Use(cfg.RateLimiter.Middleware(BucketWrites))
			}
			h.mountAuthenticated(private)
		})
	})

	return r, nil
}
