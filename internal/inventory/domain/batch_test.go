package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

var now = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func newBatch(supplied, threshold int) *domain.Batch {
	return domain.NewBatch(domain.BatchDetails{
		BrandType:         domain.BrandKotex,
		QuantitySupplied:  supplied,
		SupplierDonorName: "Helping Hands Foundation",
		DateReceived:      now,
		StorageLocation:   domain.LocationSchoolClinic,
		StaffInCharge:     "Jane Doe",
		StaffID:           "STF001",
		LowStockThreshold: threshold,
	}, now)
}

func distribute(t *testing.T, b *domain.Batch, user string, qty int) {
	t.Helper()
	_, err := b.AppendDistribution(domain.DistributionRecord{
		UserID:              user,
		UserName:            "Student " + user,
		QuantityDistributed: qty,
		DistributedBy:       "Jane Doe (STF001)",
	}, now)
	require.NoError(t, err)
}

func TestNewBatch(t *testing.T) {
	b := newBatch(20, 5)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 20, b.CurrentStock)
	assert.Equal(t, domain.StatusActive, b.Status)
	assert.False(t, b.IsLowStock)
	assert.False(t, b.TotalValue.Valid)
	assert.Equal(t, 100.0, b.StockPercentage())
}

func TestNewBatch_AlreadyExpired(t *testing.T) {
	expired := now.AddDate(0, 0, -1)
	b := domain.NewBatch(domain.BatchDetails{
		BrandType:        domain.BrandStayfree,
		QuantitySupplied: 5,
		ExpiryDate:       &expired,
	}, now)

	assert.Equal(t, domain.StatusExpired, b.Status)
	assert.Equal(t, 5, b.CurrentStock)
}

func TestDistributionScenario(t *testing.T) {
	b := newBatch(20, 5)

	for i := 0; i < 16; i++ {
		distribute(t, b, fmt.Sprintf("STU%03d", i), 1)
	}

	assert.Equal(t, 4, b.CurrentStock)
	assert.True(t, b.IsLowStock)
	assert.Equal(t, domain.StatusActive, b.Status)
	assert.Equal(t, 16, b.TotalDistributed())
	assert.Equal(t, 20.0, b.StockPercentage())

	_, err := b.AppendDistribution(domain.DistributionRecord{UserID: "STU999", QuantityDistributed: 5}, now)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	assert.Equal(t, 4, b.CurrentStock)
	assert.Len(t, b.DistributionRecords, 16)
}

func TestAppendDistribution_RejectsNonPositive(t *testing.T) {
	b := newBatch(3, 1)

	_, err := b.AppendDistribution(domain.DistributionRecord{UserID: "STU001"}, now)

	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	assert.Empty(t, b.DistributionRecords)
}

func TestAppendDistribution_DefaultsAndDepletion(t *testing.T) {
	b := newBatch(1, 0)

	rec, err := b.AppendDistribution(domain.DistributionRecord{UserID: "STU001", QuantityDistributed: 1}, now)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, b.ID, rec.BatchID)
	assert.Equal(t, domain.DefaultDistributionReason, rec.Reason)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, 0, b.CurrentStock)
	assert.Equal(t, domain.StatusDepleted, b.Status)
	assert.True(t, b.IsLowStock)
}

func TestAppendAdjustment_ReductionClampsAtZero(t *testing.T) {
	b := newBatch(20, 5)
	for i := 0; i < 16; i++ {
		distribute(t, b, fmt.Sprintf("STU%03d", i), 1)
	}

	adj, err := b.AppendAdjustment(domain.StockAdjustment{
		AdjustmentType: domain.AdjustmentReduction,
		Quantity:       10,
		Reason:         "water damage",
		AdjustedBy:     "Jane Doe",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 4, adj.PreviousStock)
	assert.Equal(t, 0, adj.NewStock)
	assert.Equal(t, 0, b.CurrentStock)
	assert.Equal(t, domain.StatusDepleted, b.Status)
}

func TestAppendAdjustment_AdditionRevivesDepletedBatch(t *testing.T) {
	b := newBatch(1, 0)
	distribute(t, b, "STU001", 1)
	require.Equal(t, domain.StatusDepleted, b.Status)

	adj, err := b.AppendAdjustment(domain.StockAdjustment{
		AdjustmentType: domain.AdjustmentAddition,
		Quantity:       6,
		Reason:         "late delivery",
		AdjustedBy:     "Jane Doe",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, 0, adj.PreviousStock)
	assert.Equal(t, 6, adj.NewStock)
	assert.Equal(t, 6, b.CurrentStock)
	assert.Equal(t, domain.StatusActive, b.Status)
}

func TestAppendAdjustment_Validation(t *testing.T) {
	b := newBatch(5, 1)

	_, err := b.AppendAdjustment(domain.StockAdjustment{AdjustmentType: "shrinkage", Quantity: 1}, now)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = b.AppendAdjustment(domain.StockAdjustment{AdjustmentType: domain.AdjustmentAddition}, now)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	assert.Empty(t, b.StockAdjustments)
	assert.Equal(t, 5, b.CurrentStock)
}

func TestStockConservation(t *testing.T) {
	b := newBatch(50, 10)

	ops := []struct {
		distribute int
		adjType    domain.AdjustmentType
		adjQty     int
	}{
		{distribute: 3},
		{adjType: domain.AdjustmentAddition, adjQty: 7},
		{distribute: 10},
		{adjType: domain.AdjustmentReduction, adjQty: 4},
		{adjType: domain.AdjustmentCorrection, adjQty: 2},
		{distribute: 1},
		{adjType: domain.AdjustmentReduction, adjQty: 100},
		{adjType: domain.AdjustmentAddition, adjQty: 5},
		{distribute: 5},
	}

	for i, op := range ops {
		if op.distribute > 0 {
			distribute(t, b, fmt.Sprintf("STU%03d", i), op.distribute)
		} else {
			_, err := b.AppendAdjustment(domain.StockAdjustment{
				AdjustmentType: op.adjType, Quantity: op.adjQty, Reason: "count", AdjustedBy: "Jane",
			}, now)
			require.NoError(t, err)
		}

		expected := b.QuantitySupplied - b.TotalDistributed()
		for _, adj := range b.StockAdjustments {
			expected += adj.NewStock - adj.PreviousStock
		}
		require.Equal(t, expected, b.CurrentStock, "after op %d", i)
		require.GreaterOrEqual(t, b.CurrentStock, 0)
	}

	assert.Equal(t, 0, b.CurrentStock)
}

func TestRecompute_Idempotent(t *testing.T) {
	b := newBatch(20, 5)
	b.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("1.25"))
	distribute(t, b, "STU001", 3)

	b.Recompute(now)
	first := *b
	b.Recompute(now)

	assert.Equal(t, first.CurrentStock, b.CurrentStock)
	assert.Equal(t, first.Status, b.Status)
	assert.Equal(t, first.IsLowStock, b.IsLowStock)
	assert.True(t, first.TotalValue.Decimal.Equal(b.TotalValue.Decimal))
	assert.Equal(t, "21.25", b.TotalValue.Decimal.StringFixed(2))
}

func TestRecompute_Status(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.AddDate(0, 1, 0)

	tests := []struct {
		name     string
		status   domain.Status
		expiry   *time.Time
		supplied int
		want     domain.Status
	}{
		{"damaged is sticky", domain.StatusDamaged, &past, 10, domain.StatusDamaged},
		{"expired wins over stock", domain.StatusActive, &past, 10, domain.StatusExpired},
		{"future expiry stays active", domain.StatusActive, &future, 10, domain.StatusActive},
		{"expired clears when expiry moves", domain.StatusExpired, &future, 10, domain.StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBatch(tt.supplied, 1)
			b.Status = tt.status
			b.ExpiryDate = tt.expiry
			b.Recompute(now)
			assert.Equal(t, tt.want, b.Status)
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	b := newBatch(20, 5)
	distribute(t, b, "STU001", 10)

	threshold := 12
	damaged := domain.StatusDamaged
	cost := decimal.RequireFromString("0.50")
	later := now.Add(time.Hour)
	b.ApplyUpdate(domain.BatchUpdate{LowStockThreshold: &threshold, Status: &damaged, UnitCost: &cost}, later)

	assert.True(t, b.IsLowStock)
	assert.Equal(t, domain.StatusDamaged, b.Status)
	assert.Equal(t, 10, b.CurrentStock)
	assert.Equal(t, "5.00", b.TotalValue.Decimal.StringFixed(2))
	assert.Equal(t, later, b.UpdatedAt)

	active := domain.StatusActive
	b.ApplyUpdate(domain.BatchUpdate{Status: &active}, later)
	assert.Equal(t, domain.StatusActive, b.Status)
}

func TestBatch_MarshalJSON(t *testing.T) {
	b := newBatch(20, 5)
	b.PadBatchID = "PAD/20240115/KOT/HHF/123"
	b.UnitCost = decimal.NewNullDecimal(decimal.RequireFromString("2"))
	distribute(t, b, "STU001", 5)

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "PAD/20240115/KOT/HHF/123", out["padBatchId"])
	assert.Equal(t, 15.0, out["currentStock"])
	assert.Equal(t, 5.0, out["totalDistributed"])
	assert.Equal(t, 75.0, out["stockPercentage"])
	assert.Equal(t, 30.0, out["totalValue"])
	assert.Len(t, out["distributionRecords"], 1)
	assert.Equal(t, []interface{}{}, out["stockAdjustments"])
	assert.NotContains(t, out, "version")
}
