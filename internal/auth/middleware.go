package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-backend/internal/http/middleware"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// UnauthorizedMessage is the body text of every 401 from RequireSession.
const UnauthorizedMessage = "Non autorisé"

// RequireSession resolves the caller from the cookie named cookieName, then
// from an "Authorization: Bearer" header. Unauthenticated requests are
// aborted with 401 {"error": "Non autorisé"}.
func RequireSession(v SessionVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		uid, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrNoSession) && !errors.Is(err, ErrInvalidSession) {
				lg := middleware.LoggerFrom(c)
				lg.Error().Err(err).Msg("session verification failed")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UnauthorizedMessage})
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the id set by RequireSession, or "".
func UserID(c *gin.Context) string {
	s, _ := c.Get(UserIDKey)
	uid, _ := s.(string)
	return uid
}

func sessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
			if tok := tokenFromCookie(raw); tok != "" {
				return tok
			}
		}
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
