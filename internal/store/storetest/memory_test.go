package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ajosave/internal/domain"
	"ajosave/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomic_KeepsWritesMadeDuringTheBlock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- m.Atomic(ctx, func(tx store.Repository) error {
			close(started)
			<-release
			return tx.CreateNotification(ctx, &domain.Notification{UserID: 1, Title: "inside"})
		})
	}()
	<-started

	written := make(chan error, 1)
	go func() {
		written <- m.CreateNotification(ctx, &domain.Notification{UserID: 1, Title: "outside"})
	}()

	select {
	case err := <-written:
		t.Fatalf("write finished while a block was running: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-written)

	notes, err := m.NotificationsForUser(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.Atomic(ctx, func(tx store.Repository) error {
		require.NoError(t, tx.CreateNotification(ctx, &domain.Notification{UserID: 1, Title: "lost"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	notes, err := m.NotificationsForUser(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}
