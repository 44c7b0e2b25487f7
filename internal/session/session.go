// Package session carries the authenticated caller through a request.
package session

import "github.com/gin-gonic/gin"

const contextKey = "session"

// Session is the authenticated caller of a request.
type Session struct {
	UserID uint   // Authenticated user
	Role   string // Role claimed by the token
}

// Set installs s on the request context.
func Set(c *gin.Context, s Session) {
	c.Set(contextKey, s)
}

// From returns the request's session, if the auth middleware installed one.
func From(c *gin.Context) (Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
