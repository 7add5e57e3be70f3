package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/database"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

const batchColumns = `
	id, pad_batch_id, brand_type, quantity_supplied, current_stock,
	supplier_donor_name, date_received, storage_location, staff_in_charge, staff_id,
	expiry_date, unit_cost, total_value, notes, low_stock_threshold, is_low_stock,
	status, version, created_at, updated_at`

// BatchRepository handles batch persistence. Every method runs on the
// transaction carried by ctx when there is one.
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Insert stores a new batch. It reports false without error when the pad
// batch id is already taken, so the caller can regenerate it.
func (r *BatchRepository) Insert(ctx context.Context, b *domain.Batch) (bool, error) {
	query := `
		INSERT INTO inventory_batches (
			id, pad_batch_id, brand_type, quantity_supplied, current_stock,
			supplier_donor_name, date_received, storage_location, staff_in_charge, staff_id,
			expiry_date, unit_cost, total_value, notes, low_stock_threshold, is_low_stock,
			status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (pad_batch_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		b.ID, b.PadBatchID, b.BrandType, b.QuantitySupplied, b.CurrentStock,
		b.SupplierDonorName, b.DateReceived, b.StorageLocation, b.StaffInCharge, b.StaffID,
		b.ExpiryDate, b.UnitCost, b.TotalValue, b.Notes, b.LowStockThreshold, b.IsLowStock,
		b.Status, b.Version, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.MapError(err)
	}
	return true, nil
}

// GetByID gets a batch with its full ledger
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1`, id)
}

// GetByPadBatchID gets a batch by its human readable id
func (r *BatchRepository) GetByPadBatchID(ctx context.Context, padBatchID string) (*domain.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE pad_batch_id = $1`, padBatchID)
}

// LockByID gets a batch and holds its row lock until the surrounding
// transaction ends.
func (r *BatchRepository) LockByID(ctx context.Context, id string) (*domain.Batch, error) {
	if database.TxFromContext(ctx) == nil {
		return nil, errors.New("locking a batch requires an active transaction")
	}
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1 FOR UPDATE`, id)
}

func (r *BatchRepository) getOne(ctx context.Context, query string, arg string) (*domain.Batch, error) {
	var b domain.Batch
	if err := r.db.Conn(ctx).GetContext(ctx, &b, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) || database.IsInvalidText(err) {
			return nil, apperrors.NotFound("inventory item")
		}
		return nil, database.MapError(err)
	}

	if err := r.loadLedgers(ctx, []*domain.Batch{&b}); err != nil {
		return nil, err
	}
	return &b, nil
}

// Update writes metadata and derived fields. The stored version must match
// the one the batch was read with; it is bumped on success.
func (r *BatchRepository) Update(ctx context.Context, b *domain.Batch) error {
	query := `
		UPDATE inventory_batches SET
			brand_type = $3, current_stock = $4, supplier_donor_name = $5, date_received = $6,
			storage_location = $7, staff_in_charge = $8, staff_id = $9, expiry_date = $10,
			unit_cost = $11, total_value = $12, notes = $13, low_stock_threshold = $14,
			is_low_stock = $15, status = $16, updated_at = $17, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		b.ID, b.Version, b.BrandType, b.CurrentStock, b.SupplierDonorName, b.DateReceived,
		b.StorageLocation, b.StaffInCharge, b.StaffID, b.ExpiryDate,
		b.UnitCost, b.TotalValue, b.Notes, b.LowStockThreshold,
		b.IsLowStock, b.Status, b.UpdatedAt,
	).Scan(&b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.Conflict("inventory item was modified concurrently")
	}
	if err != nil {
		return database.MapError(err)
	}
	return nil
}

// Delete removes a batch. Batches with distribution history are protected
// by a foreign key.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM inventory_batches WHERE id = $1`, id)
	if err != nil {
		return database.MapError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return apperrors.NotFound("inventory item")
	}
	return nil
}

// HasDistributions reports whether any unit of the batch was handed out
func (r *BatchRepository) HasDistributions(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM distribution_records WHERE batch_id = $1)`
	if err := r.db.Conn(ctx).GetContext(ctx, &exists, query, id); err != nil {
		return false, err
	}
	return exists, nil
}

// List returns a page of batches, newest first, with their ledgers
func (r *BatchRepository) List(ctx context.Context, f domain.BatchFilter) ([]*domain.Batch, int64, error) {
	where, args := buildBatchFilter(f)

	var total int64
	if err := r.db.Conn(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM inventory_batches`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + batchColumns + ` FROM inventory_batches` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset())
	}

	batches := []*domain.Batch{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, 0, err
	}

	if err := r.loadLedgers(ctx, batches); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// ListLowStock returns active batches at or below their threshold
func (r *BatchRepository) ListLowStock(ctx context.Context) ([]*domain.Batch, error) {
	query := `
		SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE is_low_stock AND status = 'active'
		ORDER BY current_stock, created_at DESC
	`

	batches := []*domain.Batch{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &batches, query); err != nil {
		return nil, err
	}
	if err := r.loadLedgers(ctx, batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListCandidates returns batches checkout may draw from, earliest expiry
// first with undated batches last and fuller batches breaking ties. Batches
// past their expiry date at now are left out even before the sweeper marks
// them. Ledgers are not loaded.
func (r *BatchRepository) ListCandidates(ctx context.Context, location domain.StorageLocation, now time.Time) ([]*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE status = 'active' AND current_stock > 0
			AND (expiry_date IS NULL OR expiry_date >= $1)`
	args := []interface{}{now}

	if location != "" {
		query += ` AND storage_location = $2`
		args = append(args, location)
	}
	query += ` ORDER BY expiry_date ASC NULLS LAST, current_stock DESC, created_at`

	batches := []*domain.Batch{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListLapsed returns the ids of batches past their expiry date that are
// not yet marked expired or damaged
func (r *BatchRepository) ListLapsed(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id FROM inventory_batches
		WHERE expiry_date IS NOT NULL AND expiry_date < $1
			AND status IN ('active', 'depleted')
		ORDER BY expiry_date
	`

	ids := []string{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &ids, query, now); err != nil {
		return nil, err
	}
	return ids, nil
}

// loadLedgers attaches distribution and adjustment history in two queries
func (r *BatchRepository) loadLedgers(ctx context.Context, batches []*domain.Batch) error {
	if len(batches) == 0 {
		return nil
	}

	ids := make([]string, len(batches))
	byID := make(map[string]*domain.Batch, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
		byID[b.ID] = b
		b.DistributionRecords = []domain.DistributionRecord{}
		b.StockAdjustments = []domain.StockAdjustment{}
	}

	var records []domain.DistributionRecord
	recordsQuery := `
		SELECT id, batch_id, user_id, user_name, quantity_distributed, distributed_by, reason, notes, created_at
		FROM distribution_records
		WHERE batch_id = ANY($1)
		ORDER BY created_at, id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &records, recordsQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load distribution records: %w", err)
	}
	for _, rec := range records {
		if b, ok := byID[rec.BatchID]; ok {
			b.DistributionRecords = append(b.DistributionRecords, rec)
		}
	}

	var adjustments []domain.StockAdjustment
	adjustmentsQuery := `
		SELECT id, batch_id, adjustment_type, quantity, reason, adjusted_by, previous_stock, new_stock, created_at
		FROM stock_adjustments
		WHERE batch_id = ANY($1)
		ORDER BY created_at, id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &adjustments, adjustmentsQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load stock adjustments: %w", err)
	}
	for _, adj := range adjustments {
		if b, ok := byID[adj.BatchID]; ok {
			b.StockAdjustments = append(b.StockAdjustments, adj)
		}
	}

	return nil
}

func buildBatchFilter(f domain.BatchFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.BrandType != "" {
		add("brand_type = $%d", f.BrandType)
	}
	if f.StorageLocation != "" {
		add("storage_location = $%d", f.StorageLocation)
	}
	if f.IsLowStock != nil {
		add("is_low_stock = $%d", *f.IsLowStock)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(pad_batch_id ILIKE $%d OR supplier_donor_name ILIKE $%d OR staff_in_charge ILIKE $%d OR notes ILIKE $%d)",
			n, n, n, n,
		))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
