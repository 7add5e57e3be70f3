package testutil

import (
	"fmt"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Batch builds an active batch of 20 Kotex pads received at the school
// clinic. Every batch gets a distinct pad batch id.
func (f *FixtureFactory) Batch() *domain.Batch {
	seq := f.nextSeq()
	now := time.Now().UTC().Truncate(time.Microsecond)

	d := domain.BatchDetails{
		BrandType:         domain.BrandKotex,
		QuantitySupplied:  20,
		SupplierDonorName: "Girls Support",
		DateReceived:      now.Truncate(24 * time.Hour),
		StorageLocation:   domain.LocationSchoolClinic,
		StaffInCharge:     "Jane Wanjiru",
		StaffID:           "STF-001",
		LowStockThreshold: 5,
	}

	b := domain.NewBatch(d, now)
	b.PadBatchID = fmt.Sprintf("PAD/%s/%s/%s/%03d",
		now.Format("20060102"), domain.BrandCode(d.BrandType), domain.SupplierInitials(d.SupplierDonorName), seq)
	return b
}

// Student builds a registered student with no disability
func (f *FixtureFactory) Student(opts ...func(*domain.Student)) *domain.Student {
	seq := f.nextSeq()
	age := "15"

	s := &domain.Student{
		UserID:     fmt.Sprintf("STU%03d", seq),
		Names:      fmt.Sprintf("Student %d", seq),
		Age:        &age,
		Disability: "no",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithStudentID sets the student's user id
func WithStudentID(id string) func(*domain.Student) {
	return func(s *domain.Student) {
		s.UserID = id
	}
}
