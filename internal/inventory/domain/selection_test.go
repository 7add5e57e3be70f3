package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
)

func candidate(id string, brand domain.BrandType, stock int, expiry *time.Time) *domain.Batch {
	return &domain.Batch{
		ID:           id,
		BrandType:    brand,
		CurrentStock: stock,
		ExpiryDate:   expiry,
		Status:       domain.StatusActive,
	}
}

func at(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func ids(batches []*domain.Batch) []string {
	out := make([]string, len(batches))
	for i, b := range batches {
		out[i] = b.ID
	}
	return out
}

func TestSortCandidates_EarliestExpiryFirst(t *testing.T) {
	batches := []*domain.Batch{
		candidate("undated-small", domain.BrandKotex, 3, nil),
		candidate("late", domain.BrandKotex, 50, at(90)),
		candidate("undated-big", domain.BrandKotex, 30, nil),
		candidate("early", domain.BrandKotex, 1, at(10)),
		candidate("early-bigger", domain.BrandKotex, 8, at(10)),
	}

	domain.SortCandidates(batches)

	assert.Equal(t, []string{"early-bigger", "early", "late", "undated-big", "undated-small"}, ids(batches))
}

func TestSelectBatch(t *testing.T) {
	batches := []*domain.Batch{
		candidate("kotex-soon", domain.BrandKotex, 5, at(5)),
		candidate("always-later", domain.BrandAlwaysUltra, 5, at(30)),
		candidate("always-undated", domain.BrandAlwaysUltra, 50, nil),
	}
	domain.SortCandidates(batches)

	t.Run("fefo without preference", func(t *testing.T) {
		got := domain.SelectBatch(batches, "")
		require.NotNil(t, got)
		assert.Equal(t, "kotex-soon", got.ID)
	})

	t.Run("preferred brand wins over earlier expiry", func(t *testing.T) {
		got := domain.SelectBatch(batches, domain.BrandAlwaysUltra)
		require.NotNil(t, got)
		assert.Equal(t, "always-later", got.ID)
	})

	t.Run("falls back when preferred brand is absent", func(t *testing.T) {
		got := domain.SelectBatch(batches, domain.BrandStayfree)
		require.NotNil(t, got)
		assert.Equal(t, "kotex-soon", got.ID)
	})

	t.Run("skips ineligible batches", func(t *testing.T) {
		drained := []*domain.Batch{
			candidate("empty", domain.BrandKotex, 0, at(1)),
			{ID: "damaged", BrandType: domain.BrandKotex, CurrentStock: 4, Status: domain.StatusDamaged},
			candidate("ok", domain.BrandCarefree, 2, nil),
		}
		got := domain.SelectBatch(drained, domain.BrandKotex)
		require.NotNil(t, got)
		assert.Equal(t, "ok", got.ID)
	})

	t.Run("nothing eligible", func(t *testing.T) {
		assert.Nil(t, domain.SelectBatch(nil, domain.BrandKotex))
	})
}

func TestDayWindow(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)

	// 22:30 UTC on the 14th is already the 15th in Nairobi
	start, end := domain.DayWindow(time.Date(2024, 1, 14, 22, 30, 0, 0, time.UTC), nairobi)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, nairobi), start)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, nairobi), end)
	assert.Equal(t, time.Date(2024, 1, 14, 21, 0, 0, 0, time.UTC), start.UTC())
}
