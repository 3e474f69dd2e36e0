package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/auth"
)

const UserIDKey = "user_id"

type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// JWTAuth requires "Authorization: Bearer <token>" and stores the caller's
// user id under UserIDKey.
func JWTAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, "malformed authorization header")
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}
