package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Channel is the Redis pub/sub channel change events travel on.
const Channel = "ajosave:changes"

// RedisBus publishes change events to Redis and feeds events received from
// Redis into a Hub.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus wraps a Redis client.
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Publish implements Publisher.
func (b *RedisBus) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel, payload).Err()
}

// Forward subscribes to the channel and dispatches every event to hub until
// ctx is cancelled.
func (b *RedisBus) Forward(ctx context.Context, hub *Hub) error {
	sub := b.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil { // Wait for the subscription confirmation
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, err := Decode(msg.Payload)
			if err != nil {
				logrus.WithError(err).Warn("Ignoring malformed change event")
				continue
			}
			if err := hub.Dispatch(ctx, ev); err != nil {
				return nil
			}
		}
	}
}

// Decode parses a JSON change event.
func Decode(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
