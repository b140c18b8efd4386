// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SubjectKey is the gin context key holding the authenticated token subject.
const SubjectKey = "subject"

// Authenticate checks an HS256 bearer token when secret is set; with an
// empty secret every request passes as anonymous. WebSocket clients that
// cannot set headers may pass the token as ?token=.
func Authenticate(secret, issuer string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) {
			c.Set(SubjectKey, "anonymous")
			c.Next()
		}
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}

func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return c.Query("token")
}
