package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/identity"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected separate key to have its own bucket")
	}

	now = now.Add(1500 * time.Millisecond)
	if !rl.Allow("a") {
		t.Fatalf("expected a token after refill")
	}
	if rl.Allow("a") {
		t.Fatalf("expected refill to grant only one token")
	}

	now = now.Add(time.Hour)
	if removed := rl.Prune(10 * time.Minute); removed != 2 {
		t.Fatalf("expected 2 idle buckets pruned, got %d", removed)
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/appointments", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if userID != "" {
			req = req.WithContext(identity.WithPrincipal(req.Context(), identity.Principal{UserID: userID, Role: directory.RolePatient}))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("p1"); code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", code)
	}
	if code := send("p1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request limited, got %d", code)
	}
	if code := send("p2"); code != http.StatusOK {
		t.Fatalf("expected other user unaffected, got %d", code)
	}
	if code := send(""); code != http.StatusOK {
		t.Fatalf("expected anonymous caller keyed by ip, got %d", code)
	}
}
