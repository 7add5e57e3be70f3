package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
)

func strPtr(s string) *string { return &s }

func TestAgeGroup(t *testing.T) {
	tests := []struct {
		age  *string
		want string
	}{
		{strPtr("10"), "10-13"},
		{strPtr("13"), "10-13"},
		{strPtr(" 14 "), "14-16"},
		{strPtr("17"), "17-19"},
		{strPtr("25"), "20+"},
		{strPtr("9"), domain.LabelUnknown},
		{strPtr("200"), domain.LabelUnknown},
		{strPtr("fifteen"), domain.LabelUnknown},
		{nil, domain.LabelUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, domain.AgeGroup(tt.age))
	}
}

func TestDisabilityLabel(t *testing.T) {
	assert.Equal(t, domain.LabelUnknown, domain.DisabilityLabel(nil))
	assert.Equal(t, domain.LabelNoDisability, domain.DisabilityLabel(&domain.Student{Disability: "no", DisabilityType: "visual"}))
	assert.Equal(t, domain.LabelNoDisability, domain.DisabilityLabel(&domain.Student{Disability: "yes"}))
	assert.Equal(t, "hearing", domain.DisabilityLabel(&domain.Student{Disability: "yes", DisabilityType: "hearing"}))
}

func TestBuildInsights_Empty(t *testing.T) {
	out := domain.BuildInsights(nil, time.UTC)

	assert.Zero(t, out.TotalPadsDistributed)
	assert.Empty(t, out.TimeSeries)
	assert.NotNil(t, out.TopDonors)
	assert.NotNil(t, out.BreakdownAge)
}

func TestBuildInsights(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 10, 0, 0, 0, time.UTC) }
	rows := []domain.InsightRow{
		{Quantity: 1, CreatedAt: day(1, 10), SupplierDonorName: "Red Cross", Registered: true, Age: strPtr("12"), Disability: strPtr("no")},
		{Quantity: 1, CreatedAt: day(1, 10), SupplierDonorName: "Red Cross", Registered: true, Age: strPtr("15"), Disability: strPtr("yes"), DisabilityType: strPtr("visual")},
		{Quantity: 2, CreatedAt: day(1, 20), SupplierDonorName: "UNICEF", Registered: true, Age: strPtr("18"), Disability: strPtr("no")},
		{Quantity: 1, CreatedAt: day(3, 10), SupplierDonorName: "Local Church"},
	}

	out := domain.BuildInsights(rows, time.UTC)

	assert.Equal(t, 5, out.TotalPadsDistributed)
	assert.Equal(t, 3, out.TotalDonors)
	assert.Equal(t, 60, out.DaysActive)
	assert.Equal(t, 2, out.MonthsActive)
	assert.Equal(t, 0, out.AvgDaily)
	assert.Equal(t, 3, out.AvgMonthly)

	assert.Equal(t, []domain.DailyQuantity{
		{Date: "2024-01-10", Quantity: 2},
		{Date: "2024-01-20", Quantity: 2},
		{Date: "2024-03-10", Quantity: 1},
	}, out.TimeSeries)

	assert.Equal(t, []domain.DonorTotal{
		{Name: "Red Cross", Total: 2},
		{Name: "UNICEF", Total: 2},
		{Name: "Local Church", Total: 1},
	}, out.TopDonors)

	assert.Equal(t, []domain.NamedValue{
		{Name: "10-13", Value: 1},
		{Name: "14-16", Value: 1},
		{Name: "17-19", Value: 2},
		{Name: "Unknown", Value: 1},
	}, out.BreakdownAge)

	assert.Equal(t, []domain.NamedValue{
		{Name: "No Disability", Value: 3},
		{Name: "Unknown", Value: 1},
		{Name: "visual", Value: 1},
	}, out.BreakdownDisability)
}

func TestBuildInsights_SingleDayAverages(t *testing.T) {
	start := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	rows := []domain.InsightRow{
		{Quantity: 1, CreatedAt: start, SupplierDonorName: "A"},
		{Quantity: 1, CreatedAt: start.Add(time.Hour), SupplierDonorName: "B"},
	}

	out := domain.BuildInsights(rows, time.UTC)

	assert.Zero(t, out.DaysActive)
	assert.Equal(t, 2, out.AvgDaily)
	assert.Equal(t, 2, out.AvgMonthly)
}
