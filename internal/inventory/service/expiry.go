package service

import (
	"context"
	"fmt"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
)

// LapsedBatchStore finds batches whose expiry date has passed but whose
// stored status has not caught up
type LapsedBatchStore interface {
	ListLapsed(ctx context.Context, now time.Time) ([]string, error)
	LockByID(ctx context.Context, id string) (*domain.Batch, error)
	Update(ctx context.Context, b *domain.Batch) error
}

// ExpirySweeper periodically marks lapsed batches expired. Without it a
// batch keeps its stored status until its next mutation.
type ExpirySweeper struct {
	tx       TxRunner
	batches  LapsedBatchStore
	interval time.Duration
	opts     Options
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(tx TxRunner, batches LapsedBatchStore, interval time.Duration, opts Options, log *logger.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		tx:       tx,
		batches:  batches,
		interval: interval,
		opts:     opts.withDefaults(),
		logger:   log.WithComponent("expiry-sweeper"),
	}
}

// Start runs a sweep immediately and then on every tick until ctx is
// cancelled or Stop is called
func (s *ExpirySweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

		s.runCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

// Stop stops the sweeper goroutine
func (s *ExpirySweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ExpirySweeper) runCycle(ctx context.Context) {
	start := time.Now()
	expired, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	s.logger.Info().
		Int("expired", expired).
		Dur("duration", time.Since(start)).
		Msg("expiry sweep completed")
}

// Sweep recomputes every lapsed batch and returns how many changed status.
// A batch that fails is logged and skipped.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	now := s.opts.Now()

	ids, err := s.batches.ListLapsed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: list lapsed batches: %w", err)
	}

	expired := 0
	for _, id := range ids {
		var changed *domain.Batch
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			b, err := s.batches.LockByID(ctx, id)
			if err != nil {
				return err
			}

			before := b.Status
			b.Recompute(now)
			if b.Status == before {
				return nil
			}
			b.UpdatedAt = now
			if err := s.batches.Update(ctx, b); err != nil {
				return err
			}
			changed = b
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("batch_id", id).Msg("failed to expire batch")
			continue
		}
		if changed != nil {
			expired++
			s.logger.WithBatch(changed.ID, changed.PadBatchID).Info().
				Int("current_stock", changed.CurrentStock).
				Msg("batch expired")
		}
	}
	return expired, nil
}
