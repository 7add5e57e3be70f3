package domain

import (
	"math"
	"sort"
	"time"
)

const topDonorLimit = 5

// InsightRow is one handout joined with its batch donor and the student's
// registration details. Student fields are nil when the student is not in
// the projection.
type InsightRow struct {
	Quantity          int       `db:"quantity_distributed"`
	CreatedAt         time.Time `db:"created_at"`
	SupplierDonorName string    `db:"supplier_donor_name"`
	Registered        bool      `db:"registered"`
	Age               *string   `db:"age"`
	Disability        *string   `db:"disability"`
	DisabilityType    *string   `db:"disability_type"`
}

// DailyQuantity is the number of units handed out on one date
type DailyQuantity struct {
	Date     string `json:"date"`
	Quantity int    `json:"quantity"`
}

// DonorTotal is the number of units handed out from one donor's batches
type DonorTotal struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

// NamedValue is one slice of a breakdown chart
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Insights is the analytics view over every handout
type Insights struct {
	TotalPadsDistributed int             `json:"totalPadsDistributed"`
	TotalDonors          int             `json:"totalDonors"`
	DaysActive           int             `json:"daysActive"`
	MonthsActive         int             `json:"monthsActive"`
	AvgDaily             int             `json:"avgDaily"`
	AvgMonthly           int             `json:"avgMonthly"`
	TimeSeries           []DailyQuantity `json:"timeSeries"`
	TopDonors            []DonorTotal    `json:"topDonors"`
	BreakdownAge         []NamedValue    `json:"breakdownAge"`
	BreakdownDisability  []NamedValue    `json:"breakdownDisability"`
}

var ageGroupOrder = []string{"10-13", "14-16", "17-19", "20+", LabelUnknown}

// BuildInsights aggregates handout rows. Calendar days and months are
// counted in loc.
func BuildInsights(rows []InsightRow, loc *time.Location) Insights {
	out := Insights{
		TimeSeries:          []DailyQuantity{},
		TopDonors:           []DonorTotal{},
		BreakdownAge:        []NamedValue{},
		BreakdownDisability: []NamedValue{},
	}
	if len(rows) == 0 {
		return out
	}

	donors := map[string]int{}
	days := map[string]int{}
	ages := map[string]int{}
	disabilities := map[string]int{}
	first, last := rows[0].CreatedAt, rows[0].CreatedAt

	for _, r := range rows {
		out.TotalPadsDistributed += r.Quantity
		donors[r.SupplierDonorName] += r.Quantity
		days[r.CreatedAt.In(loc).Format(time.DateOnly)] += r.Quantity

		if r.CreatedAt.Before(first) {
			first = r.CreatedAt
		}
		if r.CreatedAt.After(last) {
			last = r.CreatedAt
		}

		if !r.Registered {
			ages[LabelUnknown] += r.Quantity
			disabilities[LabelUnknown] += r.Quantity
			continue
		}
		ages[AgeGroup(r.Age)] += r.Quantity
		student := &Student{}
		if r.Disability != nil {
			student.Disability = *r.Disability
		}
		if r.DisabilityType != nil {
			student.DisabilityType = *r.DisabilityType
		}
		disabilities[DisabilityLabel(student)] += r.Quantity
	}

	out.TotalDonors = len(donors)
	out.DaysActive = calendarDays(first.In(loc), last.In(loc))
	out.MonthsActive = calendarMonths(first.In(loc), last.In(loc))
	out.AvgDaily = average(out.TotalPadsDistributed, out.DaysActive)
	out.AvgMonthly = average(out.TotalPadsDistributed, out.MonthsActive)

	for date, qty := range days {
		out.TimeSeries = append(out.TimeSeries, DailyQuantity{Date: date, Quantity: qty})
	}
	sort.Slice(out.TimeSeries, func(i, j int) bool {
		return out.TimeSeries[i].Date < out.TimeSeries[j].Date
	})

	for name, total := range donors {
		out.TopDonors = append(out.TopDonors, DonorTotal{Name: name, Total: total})
	}
	sort.Slice(out.TopDonors, func(i, j int) bool {
		if out.TopDonors[i].Total != out.TopDonors[j].Total {
			return out.TopDonors[i].Total > out.TopDonors[j].Total
		}
		return out.TopDonors[i].Name < out.TopDonors[j].Name
	})
	if len(out.TopDonors) > topDonorLimit {
		out.TopDonors = out.TopDonors[:topDonorLimit]
	}

	for _, group := range ageGroupOrder {
		if v, ok := ages[group]; ok {
			out.BreakdownAge = append(out.BreakdownAge, NamedValue{Name: group, Value: v})
		}
	}

	for name, v := range disabilities {
		out.BreakdownDisability = append(out.BreakdownDisability, NamedValue{Name: name, Value: v})
	}
	sort.Slice(out.BreakdownDisability, func(i, j int) bool {
		if out.BreakdownDisability[i].Value != out.BreakdownDisability[j].Value {
			return out.BreakdownDisability[i].Value > out.BreakdownDisability[j].Value
		}
		return out.BreakdownDisability[i].Name < out.BreakdownDisability[j].Name
	})

	return out
}

func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func calendarMonths(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

func average(total, periods int) int {
	if periods <= 0 {
		return total
	}
	return int(math.Round(float64(total) / float64(periods)))
}
