package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecoveryCodeStore is the slice of the account store the sweeper needs.
type RecoveryCodeStore interface {
	ClearExpiredRecoveryCodes(ctx context.Context, now time.Time) (int64, error)
}

// RecoverySweeper periodically clears recovery codes whose window has closed.
// Expired codes are already unredeemable; sweeping only keeps the table tidy.
type RecoverySweeper struct {
	store    RecoveryCodeStore
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRecoverySweeper(store RecoveryCodeStore, logger *slog.Logger, interval time.Duration) *RecoverySweeper {
	return &RecoverySweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
	}
}

// Start runs a sweep immediately and then on every tick until Stop is called
// or ctx is cancelled.
func (s *RecoverySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("recovery sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("recovery sweeper context cancelled")
			return
		}
	}
}

func (s *RecoverySweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := s.store.ClearExpiredRecoveryCodes(sweepCtx, s.now())
	if err != nil {
		s.logger.Error("failed to clear expired recovery codes", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		s.logger.Info("expired recovery codes cleared", slog.Int64("accounts", cleared))
	}
}

func (s *RecoverySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
