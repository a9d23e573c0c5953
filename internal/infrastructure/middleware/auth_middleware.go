package middleware

import (
	"errors"
	"strings"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	apperrors "sketchroom/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserKey  = "user"
	ContextTokenKey = "session_token"
)

// SessionToken reads the session token from the cookie, falling back to a
// bearer Authorization header for non-browser clients.
func SessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// AuthMiddleware rejects requests without a live session with 401.
func AuthMiddleware(authService ports.AuthService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				_ = c.Error(apperrors.NewUnauthenticatedError("authentication required"))
			} else {
				_ = c.Error(ToAppError(err))
			}
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

// CurrentUser returns the identity stored by AuthMiddleware.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
