package realtime

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrHubStopped is returned once the hub's Run loop has exited.
var ErrHubStopped = errors.New("realtime hub stopped")

// AllUsers subscribes to every user's events (admin feed). An event for
// AllUsers is broadcast to every subscriber.
const AllUsers uint = 0

// Subscriber receives the events of one user, or of everyone for AllUsers.
type Subscriber struct {
	UserID uint
	C      <-chan ChangeEvent
	ch     chan ChangeEvent
}

// Hub is a single-goroutine reducer: every event, subscription and
// unsubscription goes through one loop, so subscriber state needs no lock.
type Hub struct {
	events      chan ChangeEvent
	subscribe   chan *Subscriber
	unsubscribe chan *Subscriber
	done        chan struct{}
	handlers    []func(ChangeEvent)
	bufferSize  int
	subs        map[uint]map[*Subscriber]struct{}
}

// NewHub creates a hub. Handlers run inside the loop for every event, before
// fan-out; bufferSize bounds each subscriber's queue.
func NewHub(bufferSize int, handlers ...func(ChangeEvent)) *Hub {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		events:      make(chan ChangeEvent),
		subscribe:   make(chan *Subscriber),
		unsubscribe: make(chan *Subscriber),
		done:        make(chan struct{}),
		handlers:    handlers,
		bufferSize:  bufferSize,
		subs:        map[uint]map[*Subscriber]struct{}{},
	}
}

// Run processes events until ctx is cancelled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.subs {
				for s := range set {
					close(s.ch)
				}
			}
			h.subs = nil
			return
		case s := <-h.subscribe:
			if h.subs[s.UserID] == nil {
				h.subs[s.UserID] = map[*Subscriber]struct{}{}
			}
			h.subs[s.UserID][s] = struct{}{}
		case s := <-h.unsubscribe:
			if _, ok := h.subs[s.UserID][s]; ok {
				delete(h.subs[s.UserID], s)
				close(s.ch)
			}
		case ev := <-h.events:
			for _, fn := range h.handlers {
				fn(ev)
			}
			if ev.UserID == AllUsers {
				for _, set := range h.subs {
					h.deliver(set, ev)
				}
				continue
			}
			h.deliver(h.subs[ev.UserID], ev)
			h.deliver(h.subs[AllUsers], ev)
		}
	}
}

// deliver never blocks the loop; a slow subscriber misses events and
// catches up on its next re-fetch.
func (h *Hub) deliver(set map[*Subscriber]struct{}, ev ChangeEvent) {
	for s := range set {
		select {
		case s.ch <- ev:
		default:
			logrus.WithFields(logrus.Fields{"user_id": s.UserID, "table": ev.Table}).Warn("Dropped realtime event for slow subscriber")
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Dispatch hands an event to the loop, blocking until the loop takes it.
func (h *Hub) Dispatch(ctx context.Context, ev ChangeEvent) error {
	if h.stopped() {
		return ErrHubStopped
	}
	select {
	case h.events <- ev:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscriber for userID.
func (h *Hub) Subscribe(ctx context.Context, userID uint) (*Subscriber, error) {
	ch := make(chan ChangeEvent, h.bufferSize)
	s := &Subscriber{UserID: userID, C: ch, ch: ch}
	if h.stopped() {
		return nil, ErrHubStopped
	}
	select {
	case h.subscribe <- s:
		return s, nil
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes s and closes its channel. It is a no-op once the hub
// has stopped.
func (h *Hub) Unsubscribe(s *Subscriber) {
	select {
	case h.unsubscribe <- s:
	case <-h.done:
	}
}
