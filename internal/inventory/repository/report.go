package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/database"
)

// ReportRepository runs the read-only aggregations behind the reports
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Overview aggregates counts, quantities and value over every batch.
// Active and depleted batches past their expiry date at now count as
// expired whether or not the sweeper has stored that yet.
func (r *ReportRepository) Overview(ctx context.Context, now time.Time) (domain.Overview, error) {
	var o domain.Overview
	query := `
		WITH b AS (
			SELECT *,
				status IN ('active', 'depleted') AND expiry_date IS NOT NULL AND expiry_date < $1 AS lapsed
			FROM inventory_batches
		)
		SELECT
			COUNT(*)                                                     AS total_batches,
			COALESCE(SUM(quantity_supplied), 0)                          AS total_supplied,
			COALESCE(SUM(current_stock), 0)                              AS total_current_stock,
			COUNT(*) FILTER (WHERE status = 'active' AND NOT lapsed)     AS active_batches,
			COUNT(*) FILTER (WHERE is_low_stock)                         AS low_stock_batches,
			COALESCE(SUM(total_value), 0)                                AS total_value,
			COUNT(*) FILTER (WHERE status = 'depleted' AND NOT lapsed)   AS depleted_batches,
			COUNT(*) FILTER (WHERE status = 'expired' OR lapsed)         AS expired_batches
		FROM b
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &o, query, now); err != nil {
		return domain.Overview{}, err
	}
	return o, nil
}

// BrandStats groups batches by brand, largest supply first
func (r *ReportRepository) BrandStats(ctx context.Context) ([]domain.GroupStats, error) {
	return r.groupStats(ctx, "brand_type")
}

// LocationStats groups batches by storage location, largest supply first
func (r *ReportRepository) LocationStats(ctx context.Context) ([]domain.GroupStats, error) {
	return r.groupStats(ctx, "storage_location")
}

func (r *ReportRepository) groupStats(ctx context.Context, column string) ([]domain.GroupStats, error) {
	query := fmt.Sprintf(`
		SELECT
			%[1]s                    AS id,
			COUNT(*)                 AS total_batches,
			SUM(quantity_supplied)   AS total_supplied,
			SUM(current_stock)       AS current_stock
		FROM inventory_batches
		GROUP BY %[1]s
		ORDER BY total_supplied DESC, id
	`, column)

	stats := []domain.GroupStats{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &stats, query); err != nil {
		return nil, err
	}
	return stats, nil
}

// DayTotals counts units and distinct students served in [start, end)
func (r *ReportRepository) DayTotals(ctx context.Context, start, end time.Time) (int, int, error) {
	var row struct {
		Total    int `db:"total"`
		Students int `db:"students"`
	}
	query := `
		SELECT
			COALESCE(SUM(quantity_distributed), 0) AS total,
			COUNT(DISTINCT user_id)                AS students
		FROM distribution_records
		WHERE created_at >= $1 AND created_at < $2
	`
	if err := r.db.Conn(ctx).GetContext(ctx, &row, query, start, end); err != nil {
		return 0, 0, err
	}
	return row.Total, row.Students, nil
}

// DayByBrand splits the units handed out in [start, end) by brand and
// storage location
func (r *ReportRepository) DayByBrand(ctx context.Context, start, end time.Time) ([]domain.BrandLocationCount, error) {
	query := `
		SELECT b.brand_type AS brand, b.storage_location AS location, SUM(d.quantity_distributed) AS count
		FROM distribution_records d
		JOIN inventory_batches b ON b.id = d.batch_id
		WHERE d.created_at >= $1 AND d.created_at < $2
		GROUP BY b.brand_type, b.storage_location
		ORDER BY count DESC, brand, location
	`

	rows := []domain.BrandLocationCount{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query, start, end); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsightRows returns every handout joined with its donor and the
// student's registration details
func (r *ReportRepository) InsightRows(ctx context.Context) ([]domain.InsightRow, error) {
	query := `
		SELECT
			d.quantity_distributed,
			d.created_at,
			b.supplier_donor_name,
			s.user_id IS NOT NULL AS registered,
			s.age,
			s.disability,
			s.disability_type
		FROM distribution_records d
		JOIN inventory_batches b ON b.id = d.batch_id
		LEFT JOIN students s ON s.user_id = d.user_id
		ORDER BY d.created_at
	`

	rows := []domain.InsightRow{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
