package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// CtxCallerAddress is the gin context key for the authenticated caller.
	CtxCallerAddress = "caller_address"

	// callerHeader carries the address the host substrate attributed to the
	// request. The engine never authenticates callers itself; it trusts the
	// substrate in front of it.
	callerHeader = "X-Caller-Address"
)

// WithCaller extracts the substrate-attributed caller address and stores it
// in the request context. Requests without an address are rejected before
// they reach any command handler.
func WithCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := strings.ToLower(strings.TrimSpace(c.GetHeader(callerHeader)))
		if addr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller address"})
			c.Abort()
			return
		}

		c.Set(CtxCallerAddress, addr)
		c.Next()
	}
}

// CallerAddress returns the caller address set by WithCaller.
func CallerAddress(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxCallerAddress))
}
