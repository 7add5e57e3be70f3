package events

import (
	"context"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/messaging"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

type publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes ledger events after commit. Failures are
// logged and counted, never returned.
type InventoryEventPublisher struct {
	publisher publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, m *metrics.Metrics, log *logger.Logger) (*InventoryEventPublisher, error) {
	p, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: p,
		metrics:   m,
		logger:    log,
	}, nil
}

// BatchCreated publishes a batch created event
func (p *InventoryEventPublisher) BatchCreated(ctx context.Context, b *domain.Batch) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventBatchCreated, b, messaging.BatchCreatedEvent{
		BatchID:           b.ID,
		PadBatchID:        b.PadBatchID,
		BrandType:         string(b.BrandType),
		QuantitySupplied:  b.QuantitySupplied,
		SupplierDonorName: b.SupplierDonorName,
		StorageLocation:   string(b.StorageLocation),
	})
}

// BatchDeleted publishes a batch deleted event
func (p *InventoryEventPublisher) BatchDeleted(ctx context.Context, b *domain.Batch) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventBatchDeleted, b, messaging.BatchDeletedEvent{
		BatchID:    b.ID,
		PadBatchID: b.PadBatchID,
	})
}

// DistributionRecorded publishes a handout
func (p *InventoryEventPublisher) DistributionRecorded(ctx context.Context, b *domain.Batch, rec domain.DistributionRecord, channel string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventDistributionRecorded, b, messaging.DistributionRecordedEvent{
		DistributionID: rec.ID,
		BatchID:        b.ID,
		PadBatchID:     b.PadBatchID,
		UserID:         rec.UserID,
		Quantity:       rec.QuantityDistributed,
		Channel:        channel,
		DistributedBy:  rec.DistributedBy,
		CurrentStock:   b.CurrentStock,
		OccurredAt:     rec.CreatedAt,
	})
}

// StockAdjusted publishes a stock adjusted event
func (p *InventoryEventPublisher) StockAdjusted(ctx context.Context, b *domain.Batch, adj domain.StockAdjustment) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventStockAdjusted, b, messaging.StockAdjustedEvent{
		BatchID:        b.ID,
		PadBatchID:     b.PadBatchID,
		AdjustmentType: string(adj.AdjustmentType),
		Quantity:       adj.Quantity,
		PreviousStock:  adj.PreviousStock,
		NewStock:       adj.NewStock,
		AdjustedBy:     adj.AdjustedBy,
		Reason:         adj.Reason,
	})
}

// LowStock publishes a low stock alert
func (p *InventoryEventPublisher) LowStock(ctx context.Context, b *domain.Batch) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventLowStock, b, messaging.LowStockEvent{
		BatchID:         b.ID,
		PadBatchID:      b.PadBatchID,
		BrandType:       string(b.BrandType),
		StorageLocation: string(b.StorageLocation),
		CurrentStock:    b.CurrentStock,
		Threshold:       b.LowStockThreshold,
	})
}

func (p *InventoryEventPublisher) publish(ctx context.Context, eventType string, b *domain.Batch, data interface{}) {
	err := p.publisher.Publish(ctx, eventType, data)
	p.metrics.RecordEventPublished(eventType, err == nil)
	if err != nil {
		p.logger.WithBatch(b.ID, b.PadBatchID).Error().
			Err(err).
			Str("event_type", eventType).
			Msg("failed to publish event")
	}
}
