package pool

import (
	"context"
	"log/slog"
	"time"
)

// CleanupService sweeps expired reservations out of the active set.
type CleanupService interface {
	// CleanupExpired marks every reservation past its expiry as EXPIRED in
	// one batch and returns how many were swept. Running it again with no
	// new expirations returns 0.
	CleanupExpired(ctx context.Context) (int, error)
}

type cleanupService struct {
	repo StockRepository
}

// NewCleanupService creates the expired-reservation sweeper.
func NewCleanupService(repo StockRepository) CleanupService {
	return &cleanupService{repo: repo}
}

func (s *cleanupService) CleanupExpired(ctx context.Context) (int, error) {
	var n int
	err := withRetry(ctx, func() error {
		var applyErr error
		n, applyErr = s.repo.ExpireReservations(ctx, time.Now().UTC())
		return applyErr
	})
	return n, err
}

// Sweeper runs CleanupExpired on a fixed interval until its context is
// cancelled. Expiry is already enforced at query time, so the sweep only
// keeps the active set from accumulating dead rows.
type Sweeper struct {
	cleanup  CleanupService
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a periodic cleanup runner.
func NewSweeper(cleanup CleanupService, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{cleanup: cleanup, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.cleanup.CleanupExpired(ctx)
			if err != nil {
				s.logger.Error("reservation sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired reservations swept", "count", n)
			}
		}
	}
}
