// Package realtime carries row-change notifications from writers to
// connected clients. Every instance publishes to a Redis channel; each
// instance's Hub consumes the channel in one goroutine and fans events out.
package realtime

import (
	"context"
	"time"
)

// Change operations
const (
	OpInsert = "insert"
	OpUpdate = "update"
)

// ChangeEvent says that a row owned by a user changed. Clients react by
// re-fetching; the event carries no row data.
type ChangeEvent struct {
	Table  string `json:"table"`   // e.g. transactions, loans, plan_instances
	Op     string `json:"op"`      // insert or update
	UserID uint   `json:"user_id"` // Owner of the row
	RowID  uint   `json:"row_id"`  // Primary key of the row
	At     int64  `json:"at"`      // Unix millis at publish time
}

// Publisher emits change events.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Changed builds an event stamped with the current time.
func Changed(table, op string, userID, rowID uint) ChangeEvent {
	return ChangeEvent{Table: table, Op: op, UserID: userID, RowID: rowID, At: time.Now().UnixMilli()}
}

// LocalPublisher hands events straight to a Hub, for single-instance setups
// and tests.
type LocalPublisher struct {
	Hub *Hub
}

// Publish implements Publisher.
func (p LocalPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	return p.Hub.Dispatch(ctx, ev)
}
