package middleware

import (
	"context"  // Request context
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"ajosave/internal/domain"  // Domain models
	"ajosave/internal/session" // Request session
	"ajosave/internal/store"   // User lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// UserLookup is the part of the store the guards need.
type UserLookup interface {
	UserByID(ctx context.Context, id uint) (domain.User, error)
}

// ActiveUserMiddleware rejects suspended or deleted users even when their
// token is still valid.
func ActiveUserMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := loadUser(c, users); ok {
			c.Next()
		}
	}
}

// AdminOnlyMiddleware checks the user's role from the database on each request
func AdminOnlyMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c, users)
		if !ok {
			return
		}
		// The token's role claim is not trusted on its own
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func loadUser(c *gin.Context, users UserLookup) (domain.User, bool) {
	s, ok := session.From(c) // Installed by JWTAuthMiddleware
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return domain.User{}, false
	}
	user, err := users.UserByID(c.Request.Context(), s.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logrus.WithFields(logrus.Fields{"user_id": s.UserID}).WithError(err).Error("Failed to load user")
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return domain.User{}, false
	}
	if user.Suspended {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account suspended"})
		return domain.User{}, false
	}
	return user, true
}
