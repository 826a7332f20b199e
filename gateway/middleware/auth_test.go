package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"creditpool/crypto"
	"creditpool/gateway/auth"
)

func TestAuthenticatorSetsCaller(t *testing.T) {
	verifier, err := auth.NewVerifier("secret", "creditpool", "creditd", 0)
	require.NoError(t, err)
	subject := crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{9}, crypto.AddressLength))
	token, err := auth.Issue(auth.IssueRequest{
		Secret:   "secret",
		Issuer:   "creditpool",
		Audience: "creditd",
		Subject:  subject,
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	var seen crypto.Address
	handler := NewAuthenticator(verifier, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		seen = caller
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/pool/lend", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.True(t, seen.Equal(subject))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/pool/lend", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		require.Equal(t, http.StatusUnauthorized, res.Code, "header %q", header)
		require.Contains(t, res.Body.String(), `"error":"Unauthenticated"`)
	}
}

func TestObservabilityRecordsRequests(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs := NewObservability(ObservabilityConfig{Enabled: true}, registry, nil)
	handler := obs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/pool", nil))

	res := httptest.NewRecorder()
	obs.MetricsHandler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, res.Body.String(), `creditd_requests_total{method="GET",route="unmatched",status="418"} 1`)
}

func TestCORSEchoesAllowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/pool", nil)
	req.Header.Set("Origin", "https://app.example")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}
