// Package service holds the AjoSave business operations. Handlers call it;
// it talks to the store, the cache and the change-event publisher.
package service

import (
	"context"
	"fmt"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/store"
	"ajosave/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options are the shared dependencies of every service.
type Options struct {
	Repo     store.Repository
	Cache    utils.Cache
	Events   realtime.Publisher
	Now      func() time.Time // Defaults to time.Now
	CacheTTL time.Duration    // Defaults to 60s
}

type base struct {
	repo   store.Repository
	cache  utils.Cache
	events realtime.Publisher
	now    func() time.Time
	ttl    time.Duration
}

func newBase(o Options) base {
	b := base{repo: o.Repo, cache: o.Cache, events: o.Events, now: o.Now, ttl: o.CacheTTL}
	if b.now == nil {
		b.now = time.Now
	}
	if b.ttl <= 0 {
		b.ttl = 60 * time.Second
	}
	return b
}

// Cache keys
func balanceKey(userID uint) string    { return fmt.Sprintf("balance:user:%d", userID) }
func historyPrefix(userID uint) string { return fmt.Sprintf("txhistory:user:%d:", userID) }
func generationKey(userID uint) string { return fmt.Sprintf("cachegen:user:%d", userID) }

// generationTTL outlives any read that races an invalidation.
const generationTTL = time.Hour

const (
	balancePrefix    = "balance:"
	adminUsersPrefix = "admin:users:"
	adminTxPrefix    = "admin:txs:"
	adminPlansPrefix = "admin:plans:"
)

// Paged is one page of a listing.
type Paged[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	Cached     bool  `json:"cached"`
}

func newPaged[T any](items []T, page, pageSize int, total int64) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (int(total) + pageSize - 1) / pageSize,
	}
}

// PageOf turns a 1-based page number and size into an offset window.
func PageOf(page, pageSize int) store.Page {
	return store.Page{Offset: (page - 1) * pageSize, Limit: pageSize}
}

// Invalidate drops every cached read that a change event can affect. It is
// installed as a realtime.Hub handler and also called directly after writes.
func Invalidate(ctx context.Context, cache utils.Cache, ev realtime.ChangeEvent) {
	if cache == nil {
		return
	}
	_ = cache.Set(ctx, generationKey(ev.UserID), uuid.NewString(), generationTTL)
	if ev.UserID != realtime.AllUsers {
		_ = cache.Delete(ctx, balanceKey(ev.UserID))
		_ = cache.DeletePrefix(ctx, historyPrefix(ev.UserID))
	} else {
		_ = cache.DeletePrefix(ctx, balancePrefix)
		_ = cache.DeletePrefix(ctx, "txhistory:")
	}
	_ = cache.DeletePrefix(ctx, adminTxPrefix)
	_ = cache.DeletePrefix(ctx, adminPlansPrefix)
	if ev.Table == "users" || ev.UserID == realtime.AllUsers {
		_ = cache.DeletePrefix(ctx, adminUsersPrefix)
	}
}

// generation identifies the last invalidation of a user's cached reads.
// Take it before reading the rows a cached value is built from.
func (b base) generation(ctx context.Context, userID uint) string {
	var user, all string
	_, _ = b.cache.Get(ctx, generationKey(userID), &user)
	_, _ = b.cache.Get(ctx, generationKey(realtime.AllUsers), &all)
	return user + "/" + all
}

// fill caches value under key unless the user's reads were invalidated since
// gen was taken. An invalidation that lands during the Set removes it again.
func (b base) fill(ctx context.Context, userID uint, key, gen string, value any) {
	if b.generation(ctx, userID) != gen {
		return
	}
	_ = b.cache.Set(ctx, key, value, b.ttl)
	if b.generation(ctx, userID) != gen {
		_ = b.cache.Delete(ctx, key)
	}
}

// changed invalidates local caches and publishes the event. Publish failures
// are logged; the write has already committed.
func (b base) changed(ctx context.Context, table, op string, userID, rowID uint) {
	ev := realtime.Changed(table, op, userID, rowID)
	Invalidate(ctx, b.cache, ev)
	if b.events == nil {
		return
	}
	if err := b.events.Publish(ctx, ev); err != nil {
		logrus.WithFields(logrus.Fields{"table": table, "user_id": userID, "row_id": rowID}).WithError(err).Warn("Failed to publish change event")
	}
}

func notify(ctx context.Context, repo store.Repository, userID uint, title, body string) error {
	return repo.CreateNotification(ctx, &domain.Notification{UserID: userID, Title: title, Body: body})
}
