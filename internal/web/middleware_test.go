package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	for i := 0; i < rateLimitMaxFail; i++ {
		if rl.recordFailure("10.0.0.1") {
			t.Fatalf("limited after %d failures", i+1)
		}
	}
	if rl.limited("10.0.0.1") {
		t.Error("should not be limited at the threshold")
	}
	if !rl.recordFailure("10.0.0.1") {
		t.Error("expected limit after exceeding threshold")
	}
	if !rl.limited("10.0.0.1") {
		t.Error("expected limited")
	}
	if rl.limited("10.0.0.2") {
		t.Error("other IPs should not be limited")
	}
}

func TestRateLimiterForgetsExpiredIPs(t *testing.T) {
	rl := newRateLimiter()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		rl.recordFailure(fmt.Sprintf("10.0.0.%d", i))
	}
	if got := rl.tracked(); got != 100 {
		t.Fatalf("tracked = %d, want 100", got)
	}

	now = now.Add(rateLimitWindow + time.Second)
	if rl.limited("10.0.0.1") {
		t.Error("expired failures should not limit")
	}
	rl.recordFailure("10.0.1.1")
	if got := rl.tracked(); got != 1 {
		t.Errorf("tracked = %d, want 1 after the window passed", got)
	}
}

func TestRequireAPIKeyRateLimits(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.AdminAPIKey = "secret" })

	get := func(token string) int {
		r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.srv.ServeHTTP(w, r)
		return w.Code
	}

	for i := 0; i <= rateLimitMaxFail; i++ {
		if code := get("wrong"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, code, http.StatusUnauthorized)
		}
	}
	if code := get("secret"); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", code, http.StatusTooManyRequests)
	}
}
