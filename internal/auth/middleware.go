package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/respond"
)

const sessionKey = "session"

func AuthMiddleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respond.Error(c, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respond.Error(c, http.StatusUnauthorized, "Invalid Authorization header")
			return
		}

		sess, err := svc.ResolveSession(c.Request.Context(), parts[1])
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenRevoked):
				respond.Error(c, http.StatusUnauthorized, "Token has been revoked")
			case errors.Is(err, ErrInvalidToken):
				respond.Error(c, http.StatusUnauthorized, "Invalid token")
			default:
				svc.log.Error("session lookup failed", zap.Error(err))
				respond.Error(c, http.StatusInternalServerError, "Failed to verify token")
			}
			return
		}

		// Attach session and email to context
		c.Set(sessionKey, sess)
		c.Set("email", sess.Email)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil || sess.Role != role {
			respond.Error(c, http.StatusForbidden, "Access denied")
			return
		}
		c.Next()
	}
}

func CurrentSession(c *gin.Context) *Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}
