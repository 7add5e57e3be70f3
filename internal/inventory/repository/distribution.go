package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/database"
)

// DistributionRepository handles the append-only distribution history
type DistributionRepository struct {
	db *database.DB
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *database.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// Insert appends a distribution record
func (r *DistributionRepository) Insert(ctx context.Context, rec *domain.DistributionRecord) error {
	query := `
		INSERT INTO distribution_records (
			id, batch_id, user_id, user_name, quantity_distributed, distributed_by, reason, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		rec.ID, rec.BatchID, rec.UserID, rec.UserName, rec.QuantityDistributed,
		rec.DistributedBy, rec.Reason, rec.Notes, rec.CreatedAt,
	)
	return database.MapError(err)
}

// ExistsForUserBetween reports whether the user received anything in
// [start, end) from any batch.
func (r *DistributionRepository) ExistsForUserBetween(ctx context.Context, userID string, start, end time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM distribution_records
			WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		)
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &exists, query, userID, start, end); err != nil {
		return false, err
	}
	return exists, nil
}

// LastForUser returns the user's most recent distribution, or nil
func (r *DistributionRepository) LastForUser(ctx context.Context, userID string) (*domain.DistributionRecord, error) {
	var rec domain.DistributionRecord
	query := `
		SELECT id, batch_id, user_id, user_name, quantity_distributed, distributed_by, reason, notes, created_at
		FROM distribution_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &rec, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// HistoryForUser returns a page of the user's distributions across all
// batches, newest first.
func (r *DistributionRepository) HistoryForUser(ctx context.Context, userID string, page, limit int) ([]domain.HistoryEntry, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM distribution_records WHERE user_id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	query := `
		SELECT d.id, d.batch_id, d.user_id, d.user_name, d.quantity_distributed, d.distributed_by,
		       d.reason, d.notes, d.created_at,
		       b.pad_batch_id, b.brand_type, b.storage_location
		FROM distribution_records d
		JOIN inventory_batches b ON b.id = d.batch_id
		WHERE d.user_id = $1
		ORDER BY d.created_at DESC, d.id
		LIMIT $2 OFFSET $3
	`

	entries := []domain.HistoryEntry{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
