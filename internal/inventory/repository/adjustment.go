package repository

import (
	"context"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/database"
)

// AdjustmentRepository handles the append-only stock adjustment history
type AdjustmentRepository struct {
	db *database.DB
}

// NewAdjustmentRepository creates a new adjustment repository
func NewAdjustmentRepository(db *database.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// Insert appends an adjustment with its stock snapshot
func (r *AdjustmentRepository) Insert(ctx context.Context, adj *domain.StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (
			id, batch_id, adjustment_type, quantity, reason, adjusted_by,
			previous_stock, new_stock, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		adj.ID, adj.BatchID, adj.AdjustmentType, adj.Quantity, adj.Reason, adj.AdjustedBy,
		adj.PreviousStock, adj.NewStock, adj.CreatedAt,
	)
	return database.MapError(err)
}
