package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	principalKey  = "principal"
	clientIPHashK = "client_ip_hash"
)

// Principal is the resolved calling identity: either an authenticated
// user's external id, or nothing (anonymous). The admission controller
// consumes this, it never authenticates on its own (spec §4.5).
type Principal struct {
	Authenticated bool
	ExternalID    string
	Email         string
	DisplayName   string
}

// ResolvePrincipal extracts a bearer token if present and verifies it;
// on missing or invalid token it sets an anonymous principal rather
// than aborting, since admission, not authentication, decides whether
// a route requires a signed-in caller.
func ResolvePrincipal(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPHashK, HashIP(c.ClientIP()))

		authHeader := c.GetHeader("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie("sharesync_session"); err == nil {
			token = cookie
		}

		if token == "" {
			c.Set(principalKey, Principal{})
			c.Next()
			return
		}

		claims, err := VerifyToken(token, secret)
		if err != nil {
			c.Set(principalKey, Principal{})
			c.Next()
			return
		}

		c.Set(principalKey, Principal{
			Authenticated: true,
			ExternalID:    claims.UserExternalID,
			Email:         claims.Email,
			DisplayName:   claims.DisplayName,
		})
		c.Next()
	}
}

// CurrentPrincipal reads the principal ResolvePrincipal attached.
func CurrentPrincipal(c *gin.Context) Principal {
	value, ok := c.Get(principalKey)
	if !ok {
		return Principal{}
	}
	principal, _ := value.(Principal)
	return principal
}

// ClientIPHash reads the hashed caller IP ResolvePrincipal attached.
func ClientIPHash(c *gin.Context) string {
	value, _ := c.Get(clientIPHashK)
	hash, _ := value.(string)
	return hash
}

// RequireAuth aborts with 401 for routes that demand an authenticated
// principal (e.g. GET /files, DELETE /files/{share_id}).
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentPrincipal(c).Authenticated {
			c.AbortWithStatusJSON(401, gin.H{"error": gin.H{"code": "unauthenticated", "message": "sign-in required"}})
			return
		}
		c.Next()
	}
}

// HashIP derives the rate-limit subject for anonymous callers without
// retaining raw IPs, matching spec §3's "hashed IP" subject class.
func HashIP(ip string) string {
	host := ip
	if parsed := net.ParseIP(ip); parsed == nil {
		if h, _, err := net.SplitHostPort(ip); err == nil {
			host = h
		}
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:16])
}
