// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements API-key authentication for the admin API. The key is
// read from X-API-Key (or an "Authorization: Bearer" header) and compared in
// constant time. On success the caller's principal is stored in the Gin
// context, where the logger, rate limiter and idempotency layer pick it up.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAPIKey carries the admin API key.
const HeaderAPIKey = "X-API-Key"

// ctxKeyPrincipal stores the authenticated principal. The value is a short
// fingerprint of the key, so rotating the key starts a fresh identity.
const ctxKeyPrincipal = "principal"

// Principal returns the authenticated principal, or "" for anonymous requests.
func Principal(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyPrincipal); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// KeyFingerprint returns the principal name derived from an API key.
func KeyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "key:" + hex.EncodeToString(sum[:6])
}

// APIKeyAuth rejects requests that do not present key with 401. An empty key
// rejects everything, so a misconfigured deployment fails closed.
func APIKeyAuth(key string) gin.HandlerFunc {
	want := []byte(key)
	principal := KeyFingerprint(key)

	return func(c *gin.Context) {
		got := presentedKey(c)
		if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.Header("WWW-Authenticate", `ApiKey header="`+HeaderAPIKey+`"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid API key",
			})
			return
		}
		c.Set(ctxKeyPrincipal, principal)
		c.Next()
	}
}

func presentedKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(HeaderAPIKey)); k != "" {
		return k
	}
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
