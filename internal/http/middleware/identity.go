package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the caller identity. There is no authentication
	// layer; the header is trusted as given.
	HeaderUserID = "X-User-ID"
	// CtxKeyUserID is the Gin context key holding the caller identity.
	CtxKeyUserID = "userID"
)

// Identity copies X-User-ID into the Gin context so that loggers, the rate
// limiter, idempotency, and handlers agree on who is calling.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(CtxKeyUserID, uid)
		}
		c.Next()
	}
}

// UserIDFrom returns the identity stored by Identity, or "".
func UserIDFrom(c *gin.Context) string {
	v, _ := c.Get(CtxKeyUserID)
	return asString(v)
}
