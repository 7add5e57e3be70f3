package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the headline count over all batches
type Summary struct {
	TotalBatches      int `json:"totalBatches" db:"total_batches"`
	TotalSupplied     int `json:"totalSupplied" db:"total_supplied"`
	TotalCurrentStock int `json:"totalCurrentStock" db:"total_current_stock"`
	ActiveBatches     int `json:"activeBatches" db:"active_batches"`
	LowStockBatches   int `json:"lowStockBatches" db:"low_stock_batches"`
}

// SummaryReport pairs the summary with the batches needing restock
type SummaryReport struct {
	Summary       Summary  `json:"summary"`
	LowStockItems []*Batch `json:"lowStockItems"`
}

// LowStockReport lists active batches at or below their threshold
type LowStockReport struct {
	Items []*Batch `json:"items"`
	Count int      `json:"count"`
}

// Overview extends the summary with value and lifecycle counts
type Overview struct {
	Summary
	TotalValue      decimal.Decimal `json:"totalValue" db:"total_value"`
	DepletedBatches int             `json:"depletedBatches" db:"depleted_batches"`
	ExpiredBatches  int             `json:"expiredBatches" db:"expired_batches"`
}

// GroupStats aggregates batches sharing a brand or a location
type GroupStats struct {
	ID            string `json:"id" db:"id"`
	TotalBatches  int    `json:"totalBatches" db:"total_batches"`
	TotalSupplied int    `json:"totalSupplied" db:"total_supplied"`
	CurrentStock  int    `json:"currentStock" db:"current_stock"`
}

// Stats is the statistics view of the inventory
type Stats struct {
	Overview      Overview     `json:"overview"`
	BrandStats    []GroupStats `json:"brandStats"`
	LocationStats []GroupStats `json:"locationStats"`
}

// BrandLocationCount counts units handed out from one brand and location
type BrandLocationCount struct {
	Brand    string `json:"brand" db:"brand"`
	Location string `json:"location" db:"location"`
	Count    int    `json:"count" db:"count"`
}

// DayReport summarises the handouts of one local calendar day
type DayReport struct {
	Date                 string               `json:"date"`
	TotalPadsDistributed int                  `json:"totalPadsDistributed"`
	UniqueStudentsCount  int                  `json:"uniqueStudentsCount"`
	ByBrand              []BrandLocationCount `json:"byBrand"`
}

// HistoryEntry is a handout together with the batch it came from
type HistoryEntry struct {
	DistributionRecord
	PadBatchID      string          `json:"padBatchId" db:"pad_batch_id"`
	BrandType       BrandType       `json:"brandType" db:"brand_type"`
	StorageLocation StorageLocation `json:"storageLocation" db:"storage_location"`
}

// ExportRow is one spreadsheet row of the inventory export
type ExportRow struct {
	BatchID          string `json:"Batch ID"`
	BrandType        string `json:"Brand Type"`
	QuantitySupplied int    `json:"Quantity Supplied"`
	CurrentStock     int    `json:"Current Stock"`
	SupplierDonor    string `json:"Supplier/Donor"`
	DateReceived     string `json:"Date Received"`
	StorageLocation  string `json:"Storage Location"`
	StaffInCharge    string `json:"Staff in Charge"`
	StaffID          string `json:"Staff ID"`
	Status           string `json:"Status"`
	LowStock         string `json:"Low Stock"`
	UnitCost         string `json:"Unit Cost"`
	TotalValue       string `json:"Total Value"`
	ExpiryDate       string `json:"Expiry Date"`
	Notes            string `json:"Notes"`
}

// ExportHeaders is the column order of the export
var ExportHeaders = []string{
	"Batch ID", "Brand Type", "Quantity Supplied", "Current Stock", "Supplier/Donor",
	"Date Received", "Storage Location", "Staff in Charge", "Staff ID", "Status",
	"Low Stock", "Unit Cost", "Total Value", "Expiry Date", "Notes",
}

// NewExportRow flattens a batch into export cells. Dates use the given
// location.
func NewExportRow(b *Batch, loc *time.Location) ExportRow {
	row := ExportRow{
		BatchID:          b.PadBatchID,
		BrandType:        string(b.BrandType),
		QuantitySupplied: b.QuantitySupplied,
		CurrentStock:     b.CurrentStock,
		SupplierDonor:    b.SupplierDonorName,
		DateReceived:     b.DateReceived.In(loc).Format(time.DateOnly),
		StorageLocation:  string(b.StorageLocation),
		StaffInCharge:    b.StaffInCharge,
		StaffID:          b.StaffID,
		Status:           string(b.Status),
		LowStock:         "No",
	}
	if b.IsLowStock {
		row.LowStock = "Yes"
	}
	if b.UnitCost.Valid {
		row.UnitCost = b.UnitCost.Decimal.StringFixed(2)
	}
	if b.TotalValue.Valid {
		row.TotalValue = b.TotalValue.Decimal.StringFixed(2)
	}
	if b.ExpiryDate != nil {
		row.ExpiryDate = b.ExpiryDate.In(loc).Format(time.DateOnly)
	}
	if b.Notes != nil {
		row.Notes = *b.Notes
	}
	return row
}

// Cells returns the row in ExportHeaders order
func (r ExportRow) Cells() []interface{} {
	return []interface{}{
		r.BatchID, r.BrandType, r.QuantitySupplied, r.CurrentStock, r.SupplierDonor,
		r.DateReceived, r.StorageLocation, r.StaffInCharge, r.StaffID, r.Status,
		r.LowStock, r.UnitCost, r.TotalValue, r.ExpiryDate, r.Notes,
	}
}
