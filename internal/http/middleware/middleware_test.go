package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() { gin.SetMode(gin.TestMode) }

// captureLogger swaps the global logger for one writing JSON lines to a buffer.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func do(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity(t *testing.T) {
	r := gin.New()
	r.Use(Identity())
	r.GET("/who", func(c *gin.Context) { c.String(http.StatusOK, UserIDFrom(c)) })

	if w := do(r, http.MethodGet, "/who", map[string]string{HeaderUserID: "  u-1 "}); w.Body.String() != "u-1" {
		t.Fatalf("identity = %q, want u-1", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/who", nil); w.Body.String() != "" {
		t.Fatalf("identity without header = %q, want empty", w.Body.String())
	}
}
