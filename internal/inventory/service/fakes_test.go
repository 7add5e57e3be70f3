package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

// memStore is an in-memory ledger. Transactions are serialized and roll
// back by restoring a snapshot, which is enough to observe all-or-nothing
// behaviour from the services.
type memStore struct {
	mu            sync.Mutex
	batches       map[string]*domain.Batch
	distributions []domain.DistributionRecord
	adjustments   []domain.StockAdjustment
	students      map[string]*domain.Student
	locks         []string

	// pad batch ids that Insert reports as collisions
	taken map[string]bool
}

type memSnapshot struct {
	batches       map[string]*domain.Batch
	distributions []domain.DistributionRecord
	adjustments   []domain.StockAdjustment
}

func newMemStore() *memStore {
	return &memStore{
		batches:  map[string]*domain.Batch{},
		students: map[string]*domain.Student{},
		taken:    map[string]bool{},
	}
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		batches:       make(map[string]*domain.Batch, len(m.batches)),
		distributions: append([]domain.DistributionRecord(nil), m.distributions...),
		adjustments:   append([]domain.StockAdjustment(nil), m.adjustments...),
	}
	for id, b := range m.batches {
		s.batches[id] = cloneBatch(b)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.batches = s.batches
	m.distributions = s.distributions
	m.adjustments = s.adjustments
}

func cloneBatch(b *domain.Batch) *domain.Batch {
	c := *b
	c.DistributionRecords = append([]domain.DistributionRecord{}, b.DistributionRecords...)
	c.StockAdjustments = append([]domain.StockAdjustment{}, b.StockAdjustments...)
	return &c
}

// TxRunner

func (m *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) WithSavepoint(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) LockKey(_ context.Context, key string) error {
	m.locks = append(m.locks, key)
	return nil
}

// BatchStore

type memBatches struct{ *memStore }

func (s memBatches) Insert(_ context.Context, b *domain.Batch) (bool, error) {
	if s.taken[b.PadBatchID] {
		return false, nil
	}
	for _, existing := range s.batches {
		if existing.PadBatchID == b.PadBatchID {
			return false, nil
		}
	}
	s.batches[b.ID] = cloneBatch(b)
	return true, nil
}

func (s memBatches) GetByID(_ context.Context, id string) (*domain.Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item")
	}
	return cloneBatch(b), nil
}

func (s memBatches) GetByPadBatchID(_ context.Context, padBatchID string) (*domain.Batch, error) {
	for _, b := range s.batches {
		if b.PadBatchID == padBatchID {
			return cloneBatch(b), nil
		}
	}
	return nil, apperrors.NotFound("inventory item")
}

func (s memBatches) LockByID(ctx context.Context, id string) (*domain.Batch, error) {
	return s.GetByID(ctx, id)
}

func (s memBatches) Update(_ context.Context, b *domain.Batch) error {
	current, ok := s.batches[b.ID]
	if !ok || current.Version != b.Version {
		return apperrors.Conflict("inventory item was modified concurrently")
	}
	b.Version++
	s.batches[b.ID] = cloneBatch(b)
	return nil
}

func (s memBatches) Delete(_ context.Context, id string) error {
	if _, ok := s.batches[id]; !ok {
		return apperrors.NotFound("inventory item")
	}
	delete(s.batches, id)
	return nil
}

func (s memBatches) HasDistributions(_ context.Context, id string) (bool, error) {
	for _, rec := range s.distributions {
		if rec.BatchID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s memBatches) List(_ context.Context, f domain.BatchFilter) ([]*domain.Batch, int64, error) {
	var out []*domain.Batch
	for _, b := range s.sorted() {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.BrandType != "" && b.BrandType != f.BrandType {
			continue
		}
		if f.StorageLocation != "" && b.StorageLocation != f.StorageLocation {
			continue
		}
		if f.IsLowStock != nil && b.IsLowStock != *f.IsLowStock {
			continue
		}
		out = append(out, b)
	}

	total := int64(len(out))
	if f.Limit > 0 {
		start := min(f.Offset(), len(out))
		end := min(start+f.Limit, len(out))
		out = out[start:end]
	}
	return out, total, nil
}

func (s memBatches) ListLowStock(_ context.Context) ([]*domain.Batch, error) {
	out := []*domain.Batch{}
	for _, b := range s.sorted() {
		if b.IsLowStock && b.Status == domain.StatusActive {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListCandidates filters on the stored status only, like a store the
// expiry sweeper has not reached yet.
func (s memBatches) ListCandidates(_ context.Context, location domain.StorageLocation, _ time.Time) ([]*domain.Batch, error) {
	var out []*domain.Batch
	for _, b := range s.sorted() {
		if !b.IsEligible() {
			continue
		}
		if location != "" && b.StorageLocation != location {
			continue
		}
		out = append(out, b)
	}
	domain.SortCandidates(out)
	return out, nil
}

func (s memBatches) ListLapsed(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	for _, b := range s.batches {
		if b.ExpiryDate == nil || !b.ExpiryDate.Before(now) {
			continue
		}
		if b.Status == domain.StatusActive || b.Status == domain.StatusDepleted {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s memBatches) sorted() []*domain.Batch {
	out := make([]*domain.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DistributionStore

type memDistributions struct{ *memStore }

func (s memDistributions) Insert(_ context.Context, rec *domain.DistributionRecord) error {
	s.distributions = append(s.distributions, *rec)
	return nil
}

func (s memDistributions) ExistsForUserBetween(_ context.Context, userID string, start, end time.Time) (bool, error) {
	for _, rec := range s.distributions {
		if rec.UserID == userID && !rec.CreatedAt.Before(start) && rec.CreatedAt.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s memDistributions) LastForUser(_ context.Context, userID string) (*domain.DistributionRecord, error) {
	var last *domain.DistributionRecord
	for i := range s.distributions {
		rec := s.distributions[i]
		if rec.UserID == userID && (last == nil || rec.CreatedAt.After(last.CreatedAt)) {
			last = &rec
		}
	}
	return last, nil
}

func (s memDistributions) HistoryForUser(_ context.Context, userID string, page, limit int) ([]domain.HistoryEntry, int64, error) {
	var entries []domain.HistoryEntry
	for _, rec := range s.distributions {
		if rec.UserID != userID {
			continue
		}
		b := s.batches[rec.BatchID]
		entries = append(entries, domain.HistoryEntry{
			DistributionRecord: rec,
			PadBatchID:         b.PadBatchID,
			BrandType:          b.BrandType,
			StorageLocation:    b.StorageLocation,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	total := int64(len(entries))
	start := min((page-1)*limit, len(entries))
	end := min(start+limit, len(entries))
	return entries[start:end], total, nil
}

// AdjustmentStore

type memAdjustments struct{ *memStore }

func (s memAdjustments) Insert(_ context.Context, adj *domain.StockAdjustment) error {
	s.adjustments = append(s.adjustments, *adj)
	return nil
}

// StudentStore

type memStudents struct{ *memStore }

func (s memStudents) GetByID(_ context.Context, userID string) (*domain.Student, error) {
	st, ok := s.students[userID]
	if !ok {
		return nil, apperrors.NotFound("Student")
	}
	c := *st
	return &c, nil
}

func (s memStudents) Upsert(_ context.Context, st *domain.Student) error {
	c := *st
	s.students[st.UserID] = &c
	return nil
}

func (s memStudents) Delete(_ context.Context, userID string) error {
	delete(s.students, userID)
	return nil
}

// recordingPublisher captures published events by name
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, name)
}

func (p *recordingPublisher) BatchCreated(context.Context, *domain.Batch) {
	p.record("batch.created")
}

func (p *recordingPublisher) BatchDeleted(context.Context, *domain.Batch) {
	p.record("batch.deleted")
}

func (p *recordingPublisher) DistributionRecorded(_ context.Context, _ *domain.Batch, _ domain.DistributionRecord, channel string) {
	p.record("distribution.recorded." + channel)
}

func (p *recordingPublisher) StockAdjusted(context.Context, *domain.Batch, domain.StockAdjustment) {
	p.record("stock.adjusted")
}

func (p *recordingPublisher) LowStock(context.Context, *domain.Batch) {
	p.record("stock.low")
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
