package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/glowlens/glowlens-api/internal/models"
	log "github.com/sirupsen/logrus"
)

// UserResolver materializes a local user row for a verified subject.
type UserResolver interface {
	EnsureUser(ctx context.Context, subject, email string) (*models.User, error)
}

// userIDKey is the gin context key holding the resolved user ID.
const userIDKey = "userID"

// Middleware enforces bearer token auth, resolves the local user row, and
// injects claims into the request context.
func Middleware(verifier *Verifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errVerify := verifier.Verify(token)
		if errVerify != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, errEnsure := users.EnsureUser(c.Request.Context(), claims.Subject, claims.Email)
		if errEnsure != nil {
			log.WithError(errEnsure).Error("auth: resolve user failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			return
		}

		c.Set(userIDKey, user.ID)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// CurrentUserID returns the resolved user ID for an authenticated request.
func CurrentUserID(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
