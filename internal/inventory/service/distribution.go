package service

import (
	"context"
	"fmt"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

// CheckoutRequest hands one pad to a registered student
type CheckoutRequest struct {
	StudentUserID   string                 `json:"studentUserId" validate:"required"`
	StaffID         string                 `json:"staffId" validate:"required"`
	StaffName       string                 `json:"staffName" validate:"required"`
	BrandPreference domain.BrandType       `json:"brandPreference" validate:"omitempty,brand_type"`
	StorageLocation domain.StorageLocation `json:"storageLocation" validate:"omitempty,storage_location"`
	Reason          string                 `json:"reason"`
	Notes           *string                `json:"notes"`
}

// DistributeRequest records a handout from a specific batch
type DistributeRequest struct {
	UserID              string  `json:"userId" validate:"required"`
	UserName            string  `json:"userName" validate:"required"`
	QuantityDistributed int     `json:"quantityDistributed" validate:"required,gte=1"`
	DistributedBy       string  `json:"distributedBy" validate:"required"`
	Reason              string  `json:"reason"`
	Notes               *string `json:"notes"`
}

// CheckoutResult describes a completed checkout
type CheckoutResult struct {
	Distribution CheckoutDistribution `json:"distribution"`
	Student      StudentRef           `json:"student"`
	Inventory    CheckoutInventory    `json:"inventory"`
	Staff        StaffRef             `json:"staff"`
}

// CheckoutDistribution is the committed record plus the batch it came from.
// BatchID is the pad batch id.
type CheckoutDistribution struct {
	UserID              string           `json:"userId"`
	UserName            string           `json:"userName"`
	QuantityDistributed int              `json:"quantityDistributed"`
	DistributedBy       string           `json:"distributedBy"`
	Reason              string           `json:"reason"`
	Notes               *string          `json:"notes,omitempty"`
	DistributionID      string           `json:"distributionId"`
	BatchID             string           `json:"batchId"`
	BrandType           domain.BrandType `json:"brandType"`
	Timestamp           time.Time        `json:"timestamp"`
}

// CheckoutInventory is the stock movement of the chosen batch
type CheckoutInventory struct {
	BatchID         string                 `json:"batchId"`
	BrandType       domain.BrandType       `json:"brandType"`
	PreviousStock   int                    `json:"previousStock"`
	CurrentStock    int                    `json:"currentStock"`
	StorageLocation domain.StorageLocation `json:"storageLocation"`
	IsLowStock      bool                   `json:"isLowStock"`
}

type StudentRef struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type StaffRef struct {
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
}

// DistributeResult is the batch after a manual handout and the new record
type DistributeResult struct {
	Inventory    *domain.Batch             `json:"inventory"`
	Distribution domain.DistributionRecord `json:"distribution"`
}

// Eligibility answers whether a checkout would currently succeed
type Eligibility struct {
	Student          StudentRef          `json:"student"`
	Eligible         bool                `json:"eligible"`
	Reasons          EligibilityReasons  `json:"reasons"`
	LastDistribution *LastDistributionAt `json:"lastDistribution"`
	AvailableStock   int                 `json:"availableStock"`
}

type EligibilityReasons struct {
	AlreadyReceivedToday bool `json:"alreadyReceivedToday"`
	NoStockAvailable     bool `json:"noStockAvailable"`
}

// LastDistributionAt points at today's handout. BatchID is the pad batch id.
type LastDistributionAt struct {
	Date    time.Time `json:"date"`
	BatchID string    `json:"batchId"`
}

// Checkout rejection reasons reported to metrics
const (
	rejectAlreadyServed = "already_distributed_today"
	rejectNoStock       = "no_stock_available"
)

// DistributionService hands out units, enforcing the daily cap and FEFO
type DistributionService struct {
	tx            TxRunner
	batches       BatchStore
	distributions DistributionStore
	students      StudentStore
	publisher     EventPublisher
	metrics       *metrics.Metrics
	opts          Options
	logger        *logger.Logger
}

// NewDistributionService creates a new distribution service
func NewDistributionService(
	tx TxRunner,
	batches BatchStore,
	distributions DistributionStore,
	students StudentStore,
	publisher EventPublisher,
	m *metrics.Metrics,
	opts Options,
	log *logger.Logger,
) *DistributionService {
	return &DistributionService{
		tx:            tx,
		batches:       batches,
		distributions: distributions,
		students:      students,
		publisher:     publisherOrNop(publisher),
		metrics:       m,
		opts:          opts.withDefaults(),
		logger:        log,
	}
}

// Checkout gives one pad to a student from the batch expiring first,
// honouring the brand preference when that brand is in stock. Every check
// and the mutation share one transaction.
func (s *DistributionService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	var (
		student *domain.Student
		batch   *domain.Batch
		rec     domain.DistributionRecord
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.opts.Now()

		st, err := s.students.GetByID(ctx, req.StudentUserID)
		if err != nil {
			return err
		}
		if err := s.claimDay(ctx, st.UserID, now); err != nil {
			return err
		}

		b, err := s.selectAndLock(ctx, req.StorageLocation, req.BrandPreference, now)
		if err != nil {
			return err
		}

		reason := req.Reason
		if reason == "" {
			reason = domain.DefaultCheckoutReason
		}
		r, err := b.AppendDistribution(domain.DistributionRecord{
			UserID:              st.UserID,
			UserName:            st.Names,
			QuantityDistributed: 1,
			DistributedBy:       fmt.Sprintf("%s (%s)", req.StaffName, req.StaffID),
			Reason:              reason,
			Notes:               req.Notes,
		}, now)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, b, &r); err != nil {
			return err
		}

		student, batch, rec = st, b, r
		return nil
	})
	if err != nil {
		s.rejected(req.StudentUserID, err)
		return nil, err
	}

	s.committed(ctx, batch, rec, domain.ChannelCheckout)

	return &CheckoutResult{
		Distribution: CheckoutDistribution{
			UserID:              rec.UserID,
			UserName:            rec.UserName,
			QuantityDistributed: rec.QuantityDistributed,
			DistributedBy:       rec.DistributedBy,
			Reason:              rec.Reason,
			Notes:               rec.Notes,
			DistributionID:      rec.ID,
			BatchID:             batch.PadBatchID,
			BrandType:           batch.BrandType,
			Timestamp:           rec.CreatedAt,
		},
		Student: StudentRef{UserID: student.UserID, Name: student.Names},
		Inventory: CheckoutInventory{
			BatchID:         batch.PadBatchID,
			BrandType:       batch.BrandType,
			PreviousStock:   batch.CurrentStock + rec.QuantityDistributed,
			CurrentStock:    batch.CurrentStock,
			StorageLocation: batch.StorageLocation,
			IsLowStock:      batch.IsLowStock,
		},
		Staff: StaffRef{StaffID: req.StaffID, StaffName: req.StaffName},
	}, nil
}

// Distribute records a handout from the given batch. The daily cap applies
// to the recipient just as it does for checkout.
func (s *DistributionService) Distribute(ctx context.Context, batchID string, req *DistributeRequest) (*DistributeResult, error) {
	var (
		batch *domain.Batch
		rec   domain.DistributionRecord
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.opts.Now()

		if err := s.claimDay(ctx, req.UserID, now); err != nil {
			return err
		}

		b, err := s.batches.LockByID(ctx, batchID)
		if err != nil {
			return err
		}

		r, err := b.AppendDistribution(domain.DistributionRecord{
			UserID:              req.UserID,
			UserName:            req.UserName,
			QuantityDistributed: req.QuantityDistributed,
			DistributedBy:       req.DistributedBy,
			Reason:              req.Reason,
			Notes:               req.Notes,
		}, now)
		if err != nil {
			return err
		}
		if err := s.persist(ctx, b, &r); err != nil {
			return err
		}

		batch, rec = b, r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, batch, rec, domain.ChannelManual)
	return &DistributeResult{Inventory: batch, Distribution: rec}, nil
}

// Eligibility runs the checkout checks without taking anything
func (s *DistributionService) Eligibility(ctx context.Context, userID string, location domain.StorageLocation, brand domain.BrandType) (*Eligibility, error) {
	student, err := s.students.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	start, end := domain.DayWindow(now, s.opts.Location)
	last, err := s.distributions.LastForUser(ctx, student.UserID)
	if err != nil {
		return nil, err
	}

	var today *LastDistributionAt
	if last != nil && !last.CreatedAt.Before(start) && last.CreatedAt.Before(end) {
		today = &LastDistributionAt{Date: last.CreatedAt}
		if b, err := s.batches.GetByID(ctx, last.BatchID); err == nil {
			today.BatchID = b.PadBatchID
		} else if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	candidates, err := s.batches.ListCandidates(ctx, location, now)
	if err != nil {
		return nil, err
	}
	available := availableBatches(unexpired(candidates, now), brand)

	return &Eligibility{
		Student:  StudentRef{UserID: student.UserID, Name: student.Names},
		Eligible: today == nil && available > 0,
		Reasons: EligibilityReasons{
			AlreadyReceivedToday: today != nil,
			NoStockAvailable:     available == 0,
		},
		LastDistribution: today,
		AvailableStock:   available,
	}, nil
}

// unexpired drops batches whose expiry date passed before the sweeper
// got to them.
func unexpired(candidates []*domain.Batch, now time.Time) []*domain.Batch {
	out := candidates[:0]
	for _, b := range candidates {
		if !b.ExpiredAt(now) {
			out = append(out, b)
		}
	}
	return out
}

// availableBatches counts the eligible batches checkout could draw from. A
// brand with none in stock falls back to every brand, as checkout does.
func availableBatches(candidates []*domain.Batch, brand domain.BrandType) int {
	preferred, all := 0, 0
	for _, b := range candidates {
		if !b.IsEligible() {
			continue
		}
		all++
		if b.BrandType == brand {
			preferred++
		}
	}
	if brand != "" && preferred > 0 {
		return preferred
	}
	return all
}

// History returns a page of a student's handouts, newest first
func (s *DistributionService) History(ctx context.Context, userID string, page, limit int) ([]domain.HistoryEntry, int64, error) {
	page, limit = NormalizePage(page, limit)
	return s.distributions.HistoryForUser(ctx, userID, page, limit)
}

// claimDay serializes handouts per recipient and rejects a second one in
// the same local day.
func (s *DistributionService) claimDay(ctx context.Context, userID string, now time.Time) error {
	if err := s.tx.LockKey(ctx, "distribution:"+userID); err != nil {
		return err
	}

	start, end := domain.DayWindow(now, s.opts.Location)
	served, err := s.distributions.ExistsForUserBetween(ctx, userID, start, end)
	if err != nil {
		return err
	}
	if served {
		return apperrors.AlreadyDistributedToday()
	}
	return nil
}

// selectAndLock picks a batch and locks it. A batch emptied by a concurrent
// checkout between the read and the lock sends selection round again, as
// does one whose expiry date has passed at now.
func (s *DistributionService) selectAndLock(ctx context.Context, location domain.StorageLocation, brand domain.BrandType, now time.Time) (*domain.Batch, error) {
	for attempt := 0; attempt < s.opts.SelectionMaxAttempts; attempt++ {
		candidates, err := s.batches.ListCandidates(ctx, location, now)
		if err != nil {
			return nil, err
		}
		candidates = unexpired(candidates, now)
		domain.SortCandidates(candidates)

		chosen := domain.SelectBatch(candidates, brand)
		if chosen == nil {
			return nil, apperrors.NoStockAvailable(string(location))
		}

		locked, err := s.batches.LockByID(ctx, chosen.ID)
		if err != nil {
			return nil, err
		}
		locked.Recompute(now)
		if locked.IsEligible() {
			return locked, nil
		}

		s.logger.WithBatch(locked.ID, locked.PadBatchID).Debug().
			Int("attempt", attempt+1).
			Msg("selected batch no longer eligible, reselecting")
	}

	s.metrics.RecordTransactionConflict()
	return nil, apperrors.Conflict("inventory changed during checkout, please retry")
}

func (s *DistributionService) persist(ctx context.Context, b *domain.Batch, rec *domain.DistributionRecord) error {
	if err := s.distributions.Insert(ctx, rec); err != nil {
		return err
	}
	return s.batches.Update(ctx, b)
}

func (s *DistributionService) committed(ctx context.Context, b *domain.Batch, rec domain.DistributionRecord, channel string) {
	s.metrics.RecordDistribution(channel, rec.QuantityDistributed)
	s.logger.WithBatch(b.ID, b.PadBatchID).Info().
		Str("student_id", rec.UserID).
		Str("channel", channel).
		Int("quantity", rec.QuantityDistributed).
		Int("current_stock", b.CurrentStock).
		Msg("distribution recorded")

	s.publisher.DistributionRecorded(ctx, b, rec, channel)
	if b.IsLowStock && b.Status == domain.StatusActive {
		s.publisher.LowStock(ctx, b)
	}
}

func (s *DistributionService) rejected(studentID string, err error) {
	reason := ""
	switch {
	case apperrors.Is(err, apperrors.ErrAlreadyDistributedToday):
		reason = rejectAlreadyServed
	case apperrors.Is(err, apperrors.ErrNoStockAvailable):
		reason = rejectNoStock
	default:
		return
	}
	s.metrics.RecordCheckoutRejection(reason)
	s.logger.Warn().
		Str("student_id", studentID).
		Str("reason", reason).
		Msg("checkout rejected")
}
