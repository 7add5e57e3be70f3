package service

import (
	"context"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

// AdjustRequest is a manual stock correction
type AdjustRequest struct {
	AdjustmentType domain.AdjustmentType `json:"adjustmentType" validate:"required,oneof=addition reduction correction"`
	Quantity       int                   `json:"quantity" validate:"required,gte=1"`
	Reason         string                `json:"reason" validate:"required"`
	AdjustedBy     string                `json:"adjustedBy" validate:"required"`
}

// AdjustResult is the batch after the adjustment and the adjustment itself
type AdjustResult struct {
	Inventory  *domain.Batch          `json:"inventory"`
	Adjustment domain.StockAdjustment `json:"adjustment"`
}

// AdjustmentService applies stock adjustments
type AdjustmentService struct {
	tx          TxRunner
	batches     BatchStore
	adjustments AdjustmentStore
	publisher   EventPublisher
	metrics     *metrics.Metrics
	opts        Options
	logger      *logger.Logger
}

// NewAdjustmentService creates a new adjustment service
func NewAdjustmentService(
	tx TxRunner,
	batches BatchStore,
	adjustments AdjustmentStore,
	publisher EventPublisher,
	m *metrics.Metrics,
	opts Options,
	log *logger.Logger,
) *AdjustmentService {
	return &AdjustmentService{
		tx:          tx,
		batches:     batches,
		adjustments: adjustments,
		publisher:   publisherOrNop(publisher),
		metrics:     m,
		opts:        opts.withDefaults(),
		logger:      log,
	}
}

// Adjust changes the stock of a batch. Reductions and corrections stop at
// zero.
func (s *AdjustmentService) Adjust(ctx context.Context, batchID string, req *AdjustRequest) (*AdjustResult, error) {
	var (
		batch *domain.Batch
		adj   domain.StockAdjustment
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.batches.LockByID(ctx, batchID)
		if err != nil {
			return err
		}

		a, err := b.AppendAdjustment(domain.StockAdjustment{
			AdjustmentType: req.AdjustmentType,
			Quantity:       req.Quantity,
			Reason:         req.Reason,
			AdjustedBy:     req.AdjustedBy,
		}, s.opts.Now())
		if err != nil {
			return err
		}

		if err := s.adjustments.Insert(ctx, &a); err != nil {
			return err
		}
		if err := s.batches.Update(ctx, b); err != nil {
			return err
		}

		batch, adj = b, a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAdjustment(string(adj.AdjustmentType))
	s.logger.WithBatch(batch.ID, batch.PadBatchID).Info().
		Str("adjustment_type", string(adj.AdjustmentType)).
		Int("previous_stock", adj.PreviousStock).
		Int("new_stock", adj.NewStock).
		Msg("stock adjusted")

	s.publisher.StockAdjusted(ctx, batch, adj)
	if batch.IsLowStock && batch.Status == domain.StatusActive {
		s.publisher.LowStock(ctx, batch)
	}
	return &AdjustResult{Inventory: batch, Adjustment: adj}, nil
}
