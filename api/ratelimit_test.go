package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestRateLimitHandlerFunc_AllowsWithinLimit(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 5)
	handler := RateLimitHandlerFunc(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimitHandlerFunc_BlocksExcessRequests(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 2)
	handler := RateLimitHandlerFunc(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Fatalf("expected 'too many requests', got %q", body["error"])
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After: 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_PerIPIsolation(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	handler := RateLimitHandlerFunc(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	blocked := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	blocked.RemoteAddr = "10.0.0.1:1000"
	blockedRec := httptest.NewRecorder()
	handler.ServeHTTP(blockedRec, blocked)
	if blockedRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected same IP to be throttled, got %d", blockedRec.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	other.RemoteAddr = "10.0.0.2:1000"
	otherRec := httptest.NewRecorder()
	handler.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusOK {
		t.Fatalf("expected a different IP to pass, got %d", otherRec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4242"
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := ClientIP(req); got != "198.51.100.2" {
		t.Errorf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "192.0.2.9, 198.51.100.2")
	if got := ClientIP(req); got != "192.0.2.9" {
		t.Errorf("expected first forwarded hop, got %q", got)
	}
}
