package service

import (
	"context"
	"strings"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/config"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

// TxRunner scopes units of work. *database.DB implements it.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithSavepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
	LockKey(ctx context.Context, key string) error
}

// BatchStore persists batches and their ledgers
type BatchStore interface {
	Insert(ctx context.Context, b *domain.Batch) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	GetByPadBatchID(ctx context.Context, padBatchID string) (*domain.Batch, error)
	LockByID(ctx context.Context, id string) (*domain.Batch, error)
	Update(ctx context.Context, b *domain.Batch) error
	Delete(ctx context.Context, id string) error
	HasDistributions(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f domain.BatchFilter) ([]*domain.Batch, int64, error)
	ListLowStock(ctx context.Context) ([]*domain.Batch, error)
	ListCandidates(ctx context.Context, location domain.StorageLocation, now time.Time) ([]*domain.Batch, error)
}

// DistributionStore persists distribution history
type DistributionStore interface {
	Insert(ctx context.Context, rec *domain.DistributionRecord) error
	ExistsForUserBetween(ctx context.Context, userID string, start, end time.Time) (bool, error)
	LastForUser(ctx context.Context, userID string) (*domain.DistributionRecord, error)
	HistoryForUser(ctx context.Context, userID string, page, limit int) ([]domain.HistoryEntry, int64, error)
}

// AdjustmentStore persists adjustment history
type AdjustmentStore interface {
	Insert(ctx context.Context, adj *domain.StockAdjustment) error
}

// StudentStore reads and maintains the student projection
type StudentStore interface {
	GetByID(ctx context.Context, userID string) (*domain.Student, error)
	Upsert(ctx context.Context, s *domain.Student) error
	Delete(ctx context.Context, userID string) error
}

// ReportStore runs read-only aggregations
type ReportStore interface {
	Overview(ctx context.Context, now time.Time) (domain.Overview, error)
	BrandStats(ctx context.Context) ([]domain.GroupStats, error)
	LocationStats(ctx context.Context) ([]domain.GroupStats, error)
	DayTotals(ctx context.Context, start, end time.Time) (int, int, error)
	DayByBrand(ctx context.Context, start, end time.Time) ([]domain.BrandLocationCount, error)
	InsightRows(ctx context.Context) ([]domain.InsightRow, error)
}

// EventPublisher announces committed ledger changes. Implementations must
// not fail the caller; publishing happens after commit.
type EventPublisher interface {
	BatchCreated(ctx context.Context, b *domain.Batch)
	BatchDeleted(ctx context.Context, b *domain.Batch)
	DistributionRecorded(ctx context.Context, b *domain.Batch, rec domain.DistributionRecord, channel string)
	StockAdjusted(ctx context.Context, b *domain.Batch, adj domain.StockAdjustment)
	LowStock(ctx context.Context, b *domain.Batch)
}

type nopPublisher struct{}

func (nopPublisher) BatchCreated(context.Context, *domain.Batch) {}

func (nopPublisher) BatchDeleted(context.Context, *domain.Batch) {}

func (nopPublisher) DistributionRecorded(context.Context, *domain.Batch, domain.DistributionRecord, string) {
}

func (nopPublisher) StockAdjusted(context.Context, *domain.Batch, domain.StockAdjustment) {}

func (nopPublisher) LowStock(context.Context, *domain.Batch) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// Options holds the ledger's business settings
type Options struct {
	Location                 *time.Location
	BatchIDMaxAttempts       int
	DefaultLowStockThreshold int
	SelectionMaxAttempts     int
	Now                      func() time.Time
}

// OptionsFromConfig resolves the inventory configuration
func OptionsFromConfig(cfg *config.InventoryConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:                 loc,
		BatchIDMaxAttempts:       cfg.BatchIDMaxAttempts,
		DefaultLowStockThreshold: cfg.DefaultLowStockThreshold,
		SelectionMaxAttempts:     cfg.SelectionMaxAttempts,
	}.withDefaults(), nil
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.BatchIDMaxAttempts < 1 {
		o.BatchIDMaxAttempts = 10
	}
	if o.DefaultLowStockThreshold < 0 {
		o.DefaultLowStockThreshold = 10
	}
	if o.SelectionMaxAttempts < 1 {
		o.SelectionMaxAttempts = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// parseDate accepts RFC 3339 timestamps and plain dates. Plain dates are
// midnight in loc.
func parseDate(field, raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, dateError(field)
}

func dateError(field string) error {
	return apperrors.Validation(map[string]string{
		field: "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp",
	})
}

func parseOptionalDate(field string, raw *string, loc *time.Location) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NormalizePage applies the default page size and its upper bound
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func recomputeAll(batches []*domain.Batch, now time.Time) {
	for _, b := range batches {
		b.Recompute(now)
	}
}
