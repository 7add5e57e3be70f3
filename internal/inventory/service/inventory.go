package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

// CreateBatchRequest is the staff entry for a received shipment
type CreateBatchRequest struct {
	BrandType         domain.BrandType       `json:"brandType" validate:"required,brand_type"`
	QuantitySupplied  int                    `json:"quantitySupplied" validate:"required,gte=1"`
	SupplierDonorName string                 `json:"supplierDonorName" validate:"required"`
	DateReceived      string                 `json:"dateReceived" validate:"required"`
	StorageLocation   domain.StorageLocation `json:"storageLocation" validate:"required,storage_location"`
	StaffInCharge     string                 `json:"staffInCharge" validate:"required"`
	StaffID           string                 `json:"staffId" validate:"required"`
	ExpiryDate        *string                `json:"expiryDate"`
	UnitCost          *decimal.Decimal       `json:"unitCost"`
	Notes             *string                `json:"notes"`
	LowStockThreshold *int                   `json:"lowStockThreshold" validate:"omitempty,gte=0"`
}

// UpdateBatchRequest changes provenance metadata. Derived and immutable
// fields are not part of it.
type UpdateBatchRequest struct {
	BrandType         *domain.BrandType       `json:"brandType" validate:"omitempty,brand_type"`
	SupplierDonorName *string                 `json:"supplierDonorName"`
	DateReceived      *string                 `json:"dateReceived"`
	StorageLocation   *domain.StorageLocation `json:"storageLocation" validate:"omitempty,storage_location"`
	StaffInCharge     *string                 `json:"staffInCharge"`
	StaffID           *string                 `json:"staffId"`
	ExpiryDate        *string                 `json:"expiryDate"`
	UnitCost          *decimal.Decimal        `json:"unitCost"`
	Notes             *string                 `json:"notes"`
	LowStockThreshold *int                    `json:"lowStockThreshold" validate:"omitempty,gte=0"`
	Status            *domain.Status          `json:"status" validate:"omitempty,oneof=active depleted expired damaged"`
}

// BulkResult reports a partially successful bulk creation
type BulkResult struct {
	Created      []*domain.Batch `json:"created"`
	CreatedCount int             `json:"createdCount"`
	Errors       []BulkItemError `json:"errors,omitempty"`
}

// BulkItemError explains why one item of a bulk request was skipped.
// Index is 1-based.
type BulkItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// InventoryService manages the lifecycle of batches
type InventoryService struct {
	tx        TxRunner
	batches   BatchStore
	ids       *domain.BatchIDGenerator
	publisher EventPublisher
	metrics   *metrics.Metrics
	opts      Options
	logger    *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	tx TxRunner,
	batches BatchStore,
	ids *domain.BatchIDGenerator,
	publisher EventPublisher,
	m *metrics.Metrics,
	opts Options,
	log *logger.Logger,
) *InventoryService {
	if ids == nil {
		ids = domain.NewBatchIDGenerator()
	}
	return &InventoryService{
		tx:        tx,
		batches:   batches,
		ids:       ids,
		publisher: publisherOrNop(publisher),
		metrics:   m,
		opts:      opts.withDefaults(),
		logger:    log,
	}
}

// Create stores a new batch under a freshly generated pad batch id
func (s *InventoryService) Create(ctx context.Context, req *CreateBatchRequest) (*domain.Batch, error) {
	var batch *domain.Batch
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.create(ctx, req)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithBatch(batch.ID, batch.PadBatchID).Info().
		Str("brand_type", string(batch.BrandType)).
		Int("quantity_supplied", batch.QuantitySupplied).
		Msg("inventory batch created")
	s.publisher.BatchCreated(ctx, batch)
	return batch, nil
}

// BulkCreate stores every valid item. Each item runs in its own savepoint so
// a failing item does not undo the others; the whole request fails only
// when nothing could be created.
func (s *InventoryService) BulkCreate(ctx context.Context, items []*CreateBatchRequest) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, apperrors.BadRequest("Invalid inventory items array")
	}

	result := &BulkResult{Created: []*domain.Batch{}}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		result.Created = result.Created[:0]
		result.Errors = nil

		for i, item := range items {
			var created *domain.Batch
			err := s.tx.WithSavepoint(ctx, "bulk_item_"+strconv.Itoa(i), func(ctx context.Context) error {
				b, err := s.create(ctx, item)
				created = b
				return err
			})
			if err != nil {
				result.Errors = append(result.Errors, BulkItemError{Index: i + 1, Error: errorMessage(err)})
				continue
			}
			result.Created = append(result.Created, created)
		}

		if len(result.Created) == 0 {
			details := make(map[string]string, len(result.Errors))
			for _, e := range result.Errors {
				details[strconv.Itoa(e.Index)] = e.Error
			}
			return apperrors.BadRequest("Failed to create any inventory items").WithDetails(details)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.CreatedCount = len(result.Created)
	s.logger.Info().
		Int("created", result.CreatedCount).
		Int("failed", len(result.Errors)).
		Msg("bulk inventory creation finished")
	for _, b := range result.Created {
		s.publisher.BatchCreated(ctx, b)
	}
	return result, nil
}

func (s *InventoryService) create(ctx context.Context, req *CreateBatchRequest) (*domain.Batch, error) {
	if req == nil {
		return nil, apperrors.BadRequest("inventory item is required")
	}

	details, err := s.details(req)
	if err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	now := s.opts.Now()
	b := domain.NewBatch(details, now)

	collisions := 0
	for attempt := 0; attempt < s.opts.BatchIDMaxAttempts; attempt++ {
		b.PadBatchID = s.ids.Generate(b.BrandType, b.SupplierDonorName, now.In(s.opts.Location))

		inserted, err := s.batches.Insert(ctx, b)
		if err != nil {
			return nil, err
		}
		if inserted {
			s.metrics.RecordBatchCreated(collisions)
			return b, nil
		}

		collisions++
		s.logger.Debug().
			Str("pad_batch_id", b.PadBatchID).
			Int("attempt", attempt+1).
			Msg("pad batch id taken, regenerating")
	}

	s.metrics.RecordBatchCreated(collisions)
	return nil, apperrors.GenerationExhausted(s.opts.BatchIDMaxAttempts)
}

func (s *InventoryService) details(req *CreateBatchRequest) (domain.BatchDetails, error) {
	received, err := parseDate("dateReceived", req.DateReceived, s.opts.Location)
	if err != nil {
		return domain.BatchDetails{}, err
	}
	expiry, err := parseOptionalDate("expiryDate", req.ExpiryDate, s.opts.Location)
	if err != nil {
		return domain.BatchDetails{}, err
	}

	d := domain.BatchDetails{
		BrandType:         req.BrandType,
		QuantitySupplied:  req.QuantitySupplied,
		SupplierDonorName: req.SupplierDonorName,
		DateReceived:      received,
		StorageLocation:   req.StorageLocation,
		StaffInCharge:     req.StaffInCharge,
		StaffID:           req.StaffID,
		ExpiryDate:        expiry,
		Notes:             req.Notes,
		LowStockThreshold: s.opts.DefaultLowStockThreshold,
	}
	if req.UnitCost != nil {
		d.UnitCost = decimal.NewNullDecimal(*req.UnitCost)
	}
	if req.LowStockThreshold != nil {
		d.LowStockThreshold = *req.LowStockThreshold
	}
	return d, nil
}

// Get gets a batch with its ledger
func (s *InventoryService) Get(ctx context.Context, id string) (*domain.Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Recompute(s.opts.Now())
	return b, nil
}

// GetByPadBatchID gets a batch by its human readable id
func (s *InventoryService) GetByPadBatchID(ctx context.Context, padBatchID string) (*domain.Batch, error) {
	b, err := s.batches.GetByPadBatchID(ctx, padBatchID)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("Inventory batch")
	}
	if err != nil {
		return nil, err
	}
	b.Recompute(s.opts.Now())
	return b, nil
}

// List returns a page of batches. Derived fields are recomputed so a batch
// past its expiry date reads as expired before the sweeper stores it.
func (s *InventoryService) List(ctx context.Context, f domain.BatchFilter) ([]*domain.Batch, int64, error) {
	f.Page, f.Limit = NormalizePage(f.Page, f.Limit)
	batches, total, err := s.batches.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	recomputeAll(batches, s.opts.Now())
	return batches, total, nil
}

// Update changes provenance metadata and recomputes derived fields
func (s *InventoryService) Update(ctx context.Context, id string, req *UpdateBatchRequest) (*domain.Batch, error) {
	update, err := s.toUpdate(req)
	if err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var batch *domain.Batch
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.batches.LockByID(ctx, id)
		if err != nil {
			return err
		}
		b.ApplyUpdate(update, s.opts.Now())
		if err := s.batches.Update(ctx, b); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithBatch(batch.ID, batch.PadBatchID).Info().Msg("inventory batch updated")
	if batch.IsLowStock && batch.Status == domain.StatusActive {
		s.publisher.LowStock(ctx, batch)
	}
	return batch, nil
}

func (s *InventoryService) toUpdate(req *UpdateBatchRequest) (domain.BatchUpdate, error) {
	u := domain.BatchUpdate{
		BrandType:         req.BrandType,
		SupplierDonorName: req.SupplierDonorName,
		StorageLocation:   req.StorageLocation,
		StaffInCharge:     req.StaffInCharge,
		StaffID:           req.StaffID,
		UnitCost:          req.UnitCost,
		Notes:             req.Notes,
		LowStockThreshold: req.LowStockThreshold,
		Status:            req.Status,
	}

	if req.DateReceived != nil {
		received, err := parseDate("dateReceived", *req.DateReceived, s.opts.Location)
		if err != nil {
			return u, err
		}
		u.DateReceived = &received
	}
	expiry, err := parseOptionalDate("expiryDate", req.ExpiryDate, s.opts.Location)
	if err != nil {
		return u, err
	}
	u.ExpiryDate = expiry
	return u, nil
}

// Delete removes a batch that never handed anything out
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	var deleted *domain.Batch
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.batches.LockByID(ctx, id)
		if err != nil {
			return err
		}

		hasHistory, err := s.batches.HasDistributions(ctx, id)
		if err != nil {
			return err
		}
		if hasHistory {
			return apperrors.BadRequest("Cannot delete inventory item with distribution records")
		}

		if err := s.batches.Delete(ctx, id); err != nil {
			return err
		}
		deleted = b
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithBatch(deleted.ID, deleted.PadBatchID).Info().Msg("inventory batch deleted")
	s.publisher.BatchDeleted(ctx, deleted)
	return nil
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		if len(appErr.Details) == 0 {
			return appErr.Message
		}
		return fmt.Sprintf("%s: %v", appErr.Message, appErr.Details)
	}
	return err.Error()
}
