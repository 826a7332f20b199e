package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creditpool/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"writes": {RequestsPerMinute: 60, Burst: 1},
	})
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("writes")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/pool/lend", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}

	now = now.Add(time.Second)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected token to refill after one second, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesBucketsAndCallers(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"writes": {RequestsPerMinute: 1, Burst: 1},
		"reads":  {RequestsPerMinute: 1, Burst: 1},
	})
	writes := limiter.Middleware("writes")(okHandler())
	reads := limiter.Middleware("reads")(okHandler())

	alice := crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{1}, crypto.AddressLength))
	bob := crypto.NewAddress(crypto.AccountPrefix, bytes.Repeat([]byte{2}, crypto.AddressLength))

	send := func(h http.Handler, caller crypto.Address) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/pool/lend", nil)
		req = req.WithContext(WithCaller(req.Context(), caller))
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)
		return res.Code
	}

	if code := send(writes, alice); code != http.StatusOK {
		t.Fatalf("alice write: %d", code)
	}
	if code := send(writes, alice); code != http.StatusTooManyRequests {
		t.Fatalf("alice second write should be limited, got %d", code)
	}
	if code := send(writes, bob); code != http.StatusOK {
		t.Fatalf("bob has his own bucket, got %d", code)
	}
	if code := send(reads, alice); code != http.StatusOK {
		t.Fatalf("reads bucket is independent, got %d", code)
	}
	if limiter.Visitors() != 3 {
		t.Fatalf("expected 3 tracked buckets, got %d", limiter.Visitors())
	}
}

func TestRateLimiterUnknownBucketPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil)
	handler := limiter.Middleware("writes")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, res.Code)
		}
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{"reads": {RequestsPerMinute: 60, Burst: 5}})
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("reads")(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	now = now.Add(limiter.idleTTL + time.Minute)
	second := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(httptest.NewRecorder(), second)

	if limiter.Visitors() != 1 {
		t.Fatalf("expected idle client to be evicted, got %d buckets", limiter.Visitors())
	}
}

func TestClientIDPrefersForwardedAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client id %q", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := clientID(req); got != "192.0.2.1" {
		t.Fatalf("unexpected client id %q", got)
	}
}
