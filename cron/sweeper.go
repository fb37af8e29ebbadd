package cron

import (
	"context"
	"errors"
	"time"

	"lenslink/services/booking"

	"go.uber.org/zap"
)

const sweepLeaseKey = "lease:sweep:overdue"

// OverdueExpirer is the part of the booking service the sweeper drives.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context) (booking.SweepReport, error)
}

// Sweeper expires accepted requests whose advance payment is late. A lease
// keeps instances from sweeping at the same time; the versioned update in
// ExpireOverdue is what makes overlapping sweeps harmless.
type Sweeper struct {
	svc      OverdueExpirer
	lease    booking.Locker
	leaseTTL time.Duration
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(svc OverdueExpirer, lease booking.Locker, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		svc:      svc,
		lease:    lease,
		leaseTTL: 10 * time.Minute,
		interval: interval,
		logger:   logger.Named("sweeper"),
	}
}

// RunOnce performs a single sweep. ran is false when another instance holds
// the lease.
func (s *Sweeper) RunOnce(ctx context.Context) (report booking.SweepReport, ran bool, err error) {
	if s.lease != nil {
		release, err := s.lease.Acquire(ctx, sweepLeaseKey, s.leaseTTL)
		if errors.Is(err, booking.ErrLocked) {
			s.logger.Debug("sweep skipped, lease held elsewhere")
			return report, false, nil
		}
		if err != nil {
			return report, false, err
		}
		defer release()
	}

	start := time.Now()
	report, err = s.svc.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return report, true, err
	}
	s.logger.Info("overdue sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("expired", report.Expired),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(start)))
	return report, true, nil
}

// Start sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("periodic sweep disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			_, _, _ = s.RunOnce(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
