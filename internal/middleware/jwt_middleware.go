package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/intertool/cardinsight_api/internal/utils"
)

// Context keys set by the middleware in this package.
const (
	ContextRequestID = "request_id"
	ContextSubject   = "subject"
	ContextEmail     = "email"
	ContextScope     = "scope"
)

// JWTMiddleware requires a bearer token of a given scope.
type JWTMiddleware struct {
	tokens *utils.TokenManager
}

func NewJWTMiddleware(tokens *utils.TokenManager) *JWTMiddleware {
	return &JWTMiddleware{tokens: tokens}
}

// Require accepts tokens carrying one of scopes.
func (m *JWTMiddleware) Require(scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		if !hasScope(claims.Scope, scopes) {
			utils.Error(c, 403, "FORBIDDEN", "Token does not grant access to this resource")
			c.Abort()
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextScope, claims.Scope)
		c.Next()
	}
}

func hasScope(scope string, allowed []string) bool {
	for _, s := range allowed {
		if s == scope {
			return true
		}
	}
	return false
}
