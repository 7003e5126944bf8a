package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// sweepTimeout bounds a single purge pass.
const sweepTimeout = 30 * time.Second

// ExpiredTokenSweeper periodically deletes expired refresh token records.
// Expiry is enforced on read; the sweeper only reclaims storage.
type ExpiredTokenSweeper struct {
	db       *sql.DB
	ledger   *RefreshLedger
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time
}

func NewExpiredTokenSweeper(db *sql.DB, ledger *RefreshLedger, interval time.Duration, logger logging.Logger) *ExpiredTokenSweeper {
	return &ExpiredTokenSweeper{
		db:       db,
		ledger:   ledger,
		interval: interval,
		logger:   logger.With("module", "sweeper"),
		now:      time.Now,
	}
}

// SweepOnce runs a single purge pass.
func (s *ExpiredTokenSweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.ledger.PurgeExpired(ctx, s.db, s.now())
	if err != nil {
		s.logger.Error(ctx, "purge expired refresh tokens", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info(ctx, "purged expired refresh tokens", "count", n)
	}
	return n, nil
}

// Run sweeps immediately and then on every interval tick until ctx is done.
func (s *ExpiredTokenSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Warn(ctx, "sweeper disabled", "interval", s.interval.String())
		return
	}

	_, _ = s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
