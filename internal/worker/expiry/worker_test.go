package expiry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modmail-dev/modmail/internal/database/dbtest"
	"github.com/modmail-dev/modmail/internal/database/models"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	model := models.NewBlocklist(dbtest.NewDB(t), zap.NewNop())

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, model.AddBlocks(ctx, []*types.BlocklistEntry{
		{ID: 1, ExpiresAt: &past, Timestamp: now.Add(-time.Hour), Type: enum.BlockTypeUser},
		{ID: 2, ExpiresAt: &future, Timestamp: now.Add(-time.Hour), Type: enum.BlockTypeUser},
		{ID: 3, Timestamp: now.Add(-time.Hour), Type: enum.BlockTypeRole},
	}))

	w := New(model, time.Minute, zap.NewNop())
	w.now = func() time.Time { return now }

	removed, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = w.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStartStopsWithContext(t *testing.T) {
	t.Parallel()

	purger := &countingPurger{err: errors.New("boom")}
	w := New(purger, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	t.Parallel()

	w := New(&countingPurger{}, 0, zap.NewNop())
	assert.Equal(t, DefaultInterval, w.interval)
}
