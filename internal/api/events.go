package api

import (
	"io"       // Stream writer
	"net/http" // HTTP status codes
	"time"     // Keepalive interval

	"ajosave/internal/realtime" // Change event hub

	"github.com/gin-gonic/gin" // Gin web framework
)

// KeepAlive is how often an idle event stream sends a ping
var KeepAlive = 25 * time.Second

// EventsHandler streams change events as Server-Sent Events. With all set
// the stream carries every user's events (the admin feed).
func EventsHandler(hub *realtime.Hub, all bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		target := s.UserID
		if all {
			target = realtime.AllUsers
		}
		ctx := c.Request.Context()
		sub, err := hub.Subscribe(ctx, target)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event stream unavailable"})
			return
		}
		defer hub.Unsubscribe(sub)

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // Disable proxy buffering
		c.SSEvent("ready", gin.H{"user_id": target})
		c.Writer.Flush()

		ticker := time.NewTicker(KeepAlive)
		defer ticker.Stop()
		c.Stream(func(io.Writer) bool {
			select {
			case ev, open := <-sub.C:
				if !open {
					return false // Hub stopped
				}
				c.SSEvent("change", ev)
				return true
			case t := <-ticker.C:
				c.SSEvent("ping", t.UnixMilli())
				return true
			case <-ctx.Done():
				return false
			}
		})
	}
}
