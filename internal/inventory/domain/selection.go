package domain

import (
	"sort"
	"time"
)

// SortCandidates orders batches earliest expiry first. Batches without an
// expiry date come last; ties go to the batch holding more stock.
func SortCandidates(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return expiresBefore(batches[i], batches[j])
	})
}

func expiresBefore(a, b *Batch) bool {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate == nil:
		return a.CurrentStock > b.CurrentStock
	case a.ExpiryDate == nil:
		return false
	case b.ExpiryDate == nil:
		return true
	case !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	default:
		return a.CurrentStock > b.CurrentStock
	}
}

// SelectBatch picks the batch checkout should take a unit from. Candidates
// must already be ordered with SortCandidates. A preferred brand wins when
// any eligible batch of that brand exists; otherwise the first eligible
// batch of any brand is used. Nil means nothing is eligible.
func SelectBatch(candidates []*Batch, preferred BrandType) *Batch {
	if preferred != "" {
		for _, b := range candidates {
			if b.BrandType == preferred && b.IsEligible() {
				return b
			}
		}
	}
	for _, b := range candidates {
		if b.IsEligible() {
			return b
		}
	}
	return nil
}

// DayWindow returns the local calendar day containing t as a half-open
// range [start, end).
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
