package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP(t *testing.T) {
	r := gin.New()
	r.Use(Identity())
	key := KeyByUserOrIP()
	r.GET("/k", func(c *gin.Context) { c.String(http.StatusOK, key(c)) })

	if w := do(r, http.MethodGet, "/k", map[string]string{HeaderUserID: "u-1"}); w.Body.String() != "user:u-1" {
		t.Fatalf("key = %q", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/k", nil); w.Body.String() != "ip:192.0.2.1" {
		t.Fatalf("key = %q", w.Body.String())
	}
}

func TestRateLimiter_AllowDenyPerCaller(t *testing.T) {
	rl := NewRateLimiter(0.0001, 0, nil) // burst coerced to 1
	r := gin.New()
	r.Use(Identity(), rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	alice := map[string]string{HeaderUserID: "alice"}
	if w := do(r, http.MethodGet, "/x", alice); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/x", alice)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("second = %d retry-after=%q", w.Code, w.Header().Get("Retry-After"))
	}
	if w := do(r, http.MethodGet, "/x", map[string]string{HeaderUserID: "bob"}); w.Code != http.StatusOK {
		t.Fatalf("other caller limited: %d", w.Code)
	}
}

func TestRateLimiter_BypassForReplays(t *testing.T) {
	rl := NewRateLimiter(0.0001, 1, KeyByUserOrIP())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }, rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if w := do(r, http.MethodGet, "/x", nil); w.Code != http.StatusOK {
			t.Fatalf("bypassed request %d = %d", i, w.Code)
		}
	}
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	rl.sweepAt = 2
	rl.limiterFor("old")
	rl.mu.Lock()
	rl.visitors["old"].lastSeen = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.limiterFor("new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["old"]; ok {
		t.Fatalf("idle visitor not evicted")
	}
	if _, ok := rl.visitors["new"]; !ok {
		t.Fatalf("new visitor missing")
	}
}
