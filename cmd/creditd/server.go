package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	"creditpool/gateway/auth"
	"creditpool/gateway/middleware"
	"creditpool/gateway/routes"
	creditdconfig "creditpool/services/creditd/config"
)

// newHandler assembles the HTTP API on top of the node.
func newHandler(n *node, svc creditdconfig.Config, logger *slog.Logger) (http.Handler, error) {
	verifier, err := auth.NewVerifier(svc.Auth.ResolveSecret(), svc.Auth.Issuer, svc.Auth.Audience, svc.Auth.ClockSkew)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		routes.BucketReads:  {RequestsPerMinute: svc.RateLimits.Reads.RequestsPerMinute, Burst: svc.RateLimits.Reads.Burst},
		routes.BucketWrites: {RequestsPerMinute: svc.RateLimits.Writes.RequestsPerMinute, Burst: svc.RateLimits.Writes.Burst},
	})
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   "creditd",
		MetricsPrefix: svc.Metrics.Prefix,
		LogRequests:   svc.Metrics.LogRequests,
		Enabled:       svc.Metrics.Enabled,
	}, n.registry, logger)

	cfg := routes.Config{
		Service:       n.engine,
		Authenticator: middleware.NewAuthenticator(verifier, logger),
		RateLimiter:   limiter,
		Observability: obs,
		CORS:          middleware.CORSConfig{AllowedOrigins: svc.CORS.AllowedOrigins},
		Logger:        logger,
	}
	if n.history != nil {
		cfg.History = n.history
	}
	return routes.New(cfg)
}

func newServer(handler http.Handler, svc creditdconfig.Config) *http.Server {
	srv := &http.Server{
		Addr:              svc.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: svc.Timeouts.ReadHeader,
		ReadTimeout:       svc.Timeouts.Read,
		WriteTimeout:      svc.Timeouts.Write,
		IdleTimeout:       svc.Timeouts.Idle,
	}
	if svc.TLS.CertPath != "" {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return srv
}
