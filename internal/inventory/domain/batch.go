package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/padbank/padbank-backend/pkg/errors"
)

func init() {
	// Money is rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Default reasons recorded when the caller does not give one
const (
	DefaultDistributionReason = "Monthly allocation"
	DefaultCheckoutReason     = "Daily distribution"
)

// Batch is one received or donated shipment together with its ledger
type Batch struct {
	ID                  string               `json:"id" db:"id"`
	PadBatchID          string               `json:"padBatchId" db:"pad_batch_id"`
	BrandType           BrandType            `json:"brandType" db:"brand_type"`
	QuantitySupplied    int                  `json:"quantitySupplied" db:"quantity_supplied"`
	CurrentStock        int                  `json:"currentStock" db:"current_stock"`
	SupplierDonorName   string               `json:"supplierDonorName" db:"supplier_donor_name"`
	DateReceived        time.Time            `json:"dateReceived" db:"date_received"`
	StorageLocation     StorageLocation      `json:"storageLocation" db:"storage_location"`
	StaffInCharge       string               `json:"staffInCharge" db:"staff_in_charge"`
	StaffID             string               `json:"staffId" db:"staff_id"`
	ExpiryDate          *time.Time           `json:"expiryDate,omitempty" db:"expiry_date"`
	UnitCost            decimal.NullDecimal  `json:"unitCost" db:"unit_cost"`
	TotalValue          decimal.NullDecimal  `json:"totalValue" db:"total_value"`
	Notes               *string              `json:"notes,omitempty" db:"notes"`
	LowStockThreshold   int                  `json:"lowStockThreshold" db:"low_stock_threshold"`
	IsLowStock          bool                 `json:"isLowStock" db:"is_low_stock"`
	Status              Status               `json:"status" db:"status"`
	Version             int                  `json:"-" db:"version"`
	CreatedAt           time.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time            `json:"updatedAt" db:"updated_at"`
	DistributionRecords []DistributionRecord `json:"distributionRecords" db:"-"`
	StockAdjustments    []StockAdjustment    `json:"stockAdjustments" db:"-"`
}

// DistributionRecord is one handout of units from a batch to a student
type DistributionRecord struct {
	ID                  string    `json:"id" db:"id"`
	BatchID             string    `json:"batchId" db:"batch_id"`
	UserID              string    `json:"userId" db:"user_id"`
	UserName            string    `json:"userName" db:"user_name"`
	QuantityDistributed int       `json:"quantityDistributed" db:"quantity_distributed"`
	DistributedBy       string    `json:"distributedBy" db:"distributed_by"`
	Reason              string    `json:"reason" db:"reason"`
	Notes               *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
}

// StockAdjustment is a manual stock change with the stock snapshot taken
// when it was applied
type StockAdjustment struct {
	ID             string         `json:"id" db:"id"`
	BatchID        string         `json:"batchId" db:"batch_id"`
	AdjustmentType AdjustmentType `json:"adjustmentType" db:"adjustment_type"`
	Quantity       int            `json:"quantity" db:"quantity"`
	Reason         string         `json:"reason" db:"reason"`
	AdjustedBy     string         `json:"adjustedBy" db:"adjusted_by"`
	PreviousStock  int            `json:"previousStock" db:"previous_stock"`
	NewStock       int            `json:"newStock" db:"new_stock"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
}

// BatchDetails is the provenance of a shipment as entered by staff
type BatchDetails struct {
	BrandType         BrandType
	QuantitySupplied  int
	SupplierDonorName string
	DateReceived      time.Time
	StorageLocation   StorageLocation
	StaffInCharge     string
	StaffID           string
	ExpiryDate        *time.Time
	UnitCost          decimal.NullDecimal
	Notes             *string
	LowStockThreshold int
}

// Validate checks the details against the ledger's field rules and reports
// every violation at once.
func (d BatchDetails) Validate() error {
	details := map[string]string{}
	if !d.BrandType.IsValid() {
		details["brandType"] = "must be a known brand"
	}
	if d.QuantitySupplied < 1 {
		details["quantitySupplied"] = "must be at least 1"
	}
	if strings.TrimSpace(d.SupplierDonorName) == "" {
		details["supplierDonorName"] = "Supplier/Donor name is required"
	}
	if d.DateReceived.IsZero() {
		details["dateReceived"] = "Date received is required"
	}
	if !d.StorageLocation.IsValid() {
		details["storageLocation"] = "must be a known storage location"
	}
	if strings.TrimSpace(d.StaffInCharge) == "" {
		details["staffInCharge"] = "Staff in charge is required"
	}
	if strings.TrimSpace(d.StaffID) == "" {
		details["staffId"] = "Staff ID is required"
	}
	if d.UnitCost.Valid && d.UnitCost.Decimal.IsNegative() {
		details["unitCost"] = "must not be negative"
	}
	if d.LowStockThreshold < 0 {
		details["lowStockThreshold"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.Validation(details)
	}
	return nil
}

// BatchUpdate carries the metadata fields staff may change after creation.
// Nil fields are left untouched.
type BatchUpdate struct {
	BrandType         *BrandType
	SupplierDonorName *string
	DateReceived      *time.Time
	StorageLocation   *StorageLocation
	StaffInCharge     *string
	StaffID           *string
	ExpiryDate        *time.Time
	UnitCost          *decimal.Decimal
	Notes             *string
	LowStockThreshold *int
	Status            *Status
}

// Validate checks every field the update sets
func (u BatchUpdate) Validate() error {
	details := map[string]string{}
	if u.BrandType != nil && !u.BrandType.IsValid() {
		details["brandType"] = "must be a known brand"
	}
	if u.StorageLocation != nil && !u.StorageLocation.IsValid() {
		details["storageLocation"] = "must be a known storage location"
	}
	if u.SupplierDonorName != nil && strings.TrimSpace(*u.SupplierDonorName) == "" {
		details["supplierDonorName"] = "must not be empty"
	}
	if u.StaffInCharge != nil && strings.TrimSpace(*u.StaffInCharge) == "" {
		details["staffInCharge"] = "must not be empty"
	}
	if u.StaffID != nil && strings.TrimSpace(*u.StaffID) == "" {
		details["staffId"] = "must not be empty"
	}
	if u.UnitCost != nil && u.UnitCost.IsNegative() {
		details["unitCost"] = "must not be negative"
	}
	if u.LowStockThreshold != nil && *u.LowStockThreshold < 0 {
		details["lowStockThreshold"] = "must not be negative"
	}
	if u.Status != nil && !u.Status.IsValid() {
		details["status"] = "must be one of: active depleted expired damaged"
	}
	if len(details) > 0 {
		return apperrors.Validation(details)
	}
	return nil
}

// NewBatch opens the ledger for a freshly received shipment. The pad batch
// id is assigned separately because it may be regenerated on collision.
func NewBatch(d BatchDetails, now time.Time) *Batch {
	b := &Batch{
		ID:                  uuid.NewString(),
		BrandType:           d.BrandType,
		QuantitySupplied:    d.QuantitySupplied,
		SupplierDonorName:   d.SupplierDonorName,
		DateReceived:        d.DateReceived,
		StorageLocation:     d.StorageLocation,
		StaffInCharge:       d.StaffInCharge,
		StaffID:             d.StaffID,
		ExpiryDate:          d.ExpiryDate,
		UnitCost:            d.UnitCost,
		Notes:               d.Notes,
		LowStockThreshold:   d.LowStockThreshold,
		Status:              StatusActive,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
		DistributionRecords: []DistributionRecord{},
		StockAdjustments:    []StockAdjustment{},
	}
	b.Recompute(now)
	return b
}

// Recompute derives stock, low-stock flag, status and total value from the
// supplied quantity and the two histories. It is idempotent.
func (b *Batch) Recompute(now time.Time) {
	stock := b.QuantitySupplied - b.TotalDistributed()
	for _, adj := range b.StockAdjustments {
		stock += adj.NewStock - adj.PreviousStock
	}

	b.CurrentStock = stock
	b.IsLowStock = stock <= b.LowStockThreshold

	switch {
	case b.Status == StatusDamaged:
		// damaged stays until staff set the batch active again
	case b.ExpiredAt(now):
		b.Status = StatusExpired
	case stock <= 0:
		b.Status = StatusDepleted
	default:
		b.Status = StatusActive
	}

	if b.UnitCost.Valid {
		b.TotalValue = decimal.NewNullDecimal(b.UnitCost.Decimal.Mul(decimal.NewFromInt(int64(stock))))
	} else {
		b.TotalValue = decimal.NullDecimal{}
	}
}

// AppendDistribution records a handout and recomputes the ledger. The
// quantity is checked against the stock held before the handout.
func (b *Batch) AppendDistribution(rec DistributionRecord, now time.Time) (DistributionRecord, error) {
	if rec.QuantityDistributed < 1 || rec.QuantityDistributed > b.CurrentStock {
		return DistributionRecord{}, apperrors.InsufficientStock(rec.QuantityDistributed, b.CurrentStock)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Reason == "" {
		rec.Reason = DefaultDistributionReason
	}
	rec.BatchID = b.ID
	rec.CreatedAt = now

	b.DistributionRecords = append(b.DistributionRecords, rec)
	b.touch(now)
	return rec, nil
}

// AppendAdjustment applies a manual stock change. Reductions and
// corrections never take the stock below zero.
func (b *Batch) AppendAdjustment(adj StockAdjustment, now time.Time) (StockAdjustment, error) {
	if !adj.AdjustmentType.IsValid() {
		return StockAdjustment{}, apperrors.Validation(map[string]string{
			"adjustmentType": "must be one of: addition reduction correction",
		})
	}
	if adj.Quantity < 1 {
		return StockAdjustment{}, apperrors.Validation(map[string]string{
			"quantity": "must be at least 1",
		})
	}

	adj.PreviousStock = b.CurrentStock
	if adj.AdjustmentType == AdjustmentAddition {
		adj.NewStock = b.CurrentStock + adj.Quantity
	} else {
		adj.NewStock = max(0, b.CurrentStock-adj.Quantity)
	}

	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	adj.BatchID = b.ID
	adj.CreatedAt = now

	b.StockAdjustments = append(b.StockAdjustments, adj)
	b.touch(now)
	return adj, nil
}

// ApplyUpdate changes provenance metadata. Derived fields are recomputed,
// never taken from the update.
func (b *Batch) ApplyUpdate(u BatchUpdate, now time.Time) {
	if u.BrandType != nil {
		b.BrandType = *u.BrandType
	}
	if u.SupplierDonorName != nil {
		b.SupplierDonorName = *u.SupplierDonorName
	}
	if u.DateReceived != nil {
		b.DateReceived = *u.DateReceived
	}
	if u.StorageLocation != nil {
		b.StorageLocation = *u.StorageLocation
	}
	if u.StaffInCharge != nil {
		b.StaffInCharge = *u.StaffInCharge
	}
	if u.StaffID != nil {
		b.StaffID = *u.StaffID
	}
	if u.ExpiryDate != nil {
		b.ExpiryDate = u.ExpiryDate
	}
	if u.UnitCost != nil {
		b.UnitCost = decimal.NewNullDecimal(*u.UnitCost)
	}
	if u.Notes != nil {
		b.Notes = u.Notes
	}
	if u.LowStockThreshold != nil {
		b.LowStockThreshold = *u.LowStockThreshold
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	b.touch(now)
}

func (b *Batch) touch(now time.Time) {
	b.UpdatedAt = now
	b.Recompute(now)
}

// TotalDistributed sums every recorded handout
func (b *Batch) TotalDistributed() int {
	total := 0
	for _, rec := range b.DistributionRecords {
		total += rec.QuantityDistributed
	}
	return total
}

// StockPercentage is the share of the supplied quantity still in stock
func (b *Batch) StockPercentage() float64 {
	if b.QuantitySupplied <= 0 {
		return 0
	}
	return float64(b.CurrentStock) / float64(b.QuantitySupplied) * 100
}

// IsEligible reports whether checkout may take a unit from the batch
func (b *Batch) IsEligible() bool {
	return b.Status == StatusActive && b.CurrentStock > 0
}

// ExpiredAt reports whether the expiry date has passed at now
func (b *Batch) ExpiredAt(now time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(now)
}

// MarshalJSON adds the computed ledger totals to the stored fields
func (b Batch) MarshalJSON() ([]byte, error) {
	type batch Batch
	out := struct {
		batch
		TotalDistributed int     `json:"totalDistributed"`
		StockPercentage  float64 `json:"stockPercentage"`
	}{
		batch:            batch(b),
		TotalDistributed: b.TotalDistributed(),
		StockPercentage:  b.StockPercentage(),
	}
	if out.DistributionRecords == nil {
		out.DistributionRecords = []DistributionRecord{}
	}
	if out.StockAdjustments == nil {
		out.StockAdjustments = []StockAdjustment{}
	}
	return json.Marshal(out)
}
