package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecoveryStore struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeRecoveryStore) ClearExpiredRecoveryCodes(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return 2, f.err
}

func (f *fakeRecoveryStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoverySweeper_SweepsOnStartAndStops(t *testing.T) {
	store := &fakeRecoveryStore{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sweeper := NewRecoverySweeper(store, testLogger(), time.Hour)
	sweeper.now = func() time.Time { return fixed }

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	sweeper.Stop()
	sweeper.Stop() // second stop is a no-op

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Equal(t, fixed, store.calls[0])
}

func TestRecoverySweeper_ContextCancelAndErrors(t *testing.T) {
	store := &fakeRecoveryStore{err: errors.New("database unavailable")}
	sweeper := NewRecoverySweeper(store, testLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper ignored context cancellation")
	}
}
