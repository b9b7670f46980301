package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
)

// ContextKeyPrincipal is the gin context key holding *domain.Principal
const ContextKeyPrincipal = "principal"

const bearerPrefix = "Bearer "

// Authenticate turns a valid bearer token into a principal on the context.
// Requests without a token continue anonymously; a malformed or expired token is rejected.
func Authenticate(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		if !strings.HasPrefix(header, bearerPrefix) || len(header) <= len(bearerPrefix) {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authorization header format")
			return
		}

		principal, err := tokens.Validate(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, ErrTokenExpired) {
				msg = "Token expired"
			}
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", msg)
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) == nil {
			response.Unauthorized(c, domain.ErrUnauthenticated.Error())
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose principal lacks the role
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			response.Unauthorized(c, domain.ErrUnauthenticated.Error())
			return
		}
		if p.Role != role {
			response.Forbidden(c, "Only "+string(role)+" can access this resource")
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated caller, or nil for anonymous requests
func Principal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}
