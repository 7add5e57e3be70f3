package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events, produced by the registration service
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Inventory events
	EventBatchCreated         = "inventory.batch.created"
	EventBatchDeleted         = "inventory.batch.deleted"
	EventDistributionRecorded = "inventory.distribution.recorded"
	EventStockAdjusted        = "inventory.stock.adjusted"
	EventLowStock             = "inventory.stock.low"
)

// Exchange names
const (
	ExchangeUserEvents      = "user.events"
	ExchangeInventoryEvents = "inventory.events"
	ExchangeDeadLetter      = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserEvent carries the registration snapshot of a user. Created and
// updated events send the full record.
type UserEvent struct {
	UserID         string `json:"user_id"`
	Names          string `json:"names"`
	Role           string `json:"role"`
	Age            string `json:"age,omitempty"`
	Sex            string `json:"sex,omitempty"`
	Disability     string `json:"disability,omitempty"`
	DisabilityType string `json:"disability_type,omitempty"`
}

// UserDeletedEvent is published when a user is removed
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// Inventory Events

// BatchCreatedEvent is published when a batch enters the ledger
type BatchCreatedEvent struct {
	BatchID           string `json:"batch_id"`
	PadBatchID        string `json:"pad_batch_id"`
	BrandType         string `json:"brand_type"`
	QuantitySupplied  int    `json:"quantity_supplied"`
	SupplierDonorName string `json:"supplier_donor_name"`
	StorageLocation   string `json:"storage_location"`
}

// BatchDeletedEvent is published when a batch without history is removed
type BatchDeletedEvent struct {
	BatchID    string `json:"batch_id"`
	PadBatchID string `json:"pad_batch_id"`
}

// DistributionRecordedEvent is published for every committed handout
type DistributionRecordedEvent struct {
	DistributionID string    `json:"distribution_id"`
	BatchID        string    `json:"batch_id"`
	PadBatchID     string    `json:"pad_batch_id"`
	UserID         string    `json:"user_id"`
	Quantity       int       `json:"quantity"`
	Channel        string    `json:"channel"`
	DistributedBy  string    `json:"distributed_by"`
	CurrentStock   int       `json:"current_stock"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// StockAdjustedEvent is published when stock is adjusted
type StockAdjustedEvent struct {
	BatchID        string `json:"batch_id"`
	PadBatchID     string `json:"pad_batch_id"`
	AdjustmentType string `json:"adjustment_type"`
	Quantity       int    `json:"quantity"`
	PreviousStock  int    `json:"previous_stock"`
	NewStock       int    `json:"new_stock"`
	AdjustedBy     string `json:"adjusted_by"`
	Reason         string `json:"reason"`
}

// LowStockEvent is published when a mutation leaves an active batch at or
// below its threshold
type LowStockEvent struct {
	BatchID         string `json:"batch_id"`
	PadBatchID      string `json:"pad_batch_id"`
	BrandType       string `json:"brand_type"`
	StorageLocation string `json:"storage_location"`
	CurrentStock    int    `json:"current_stock"`
	Threshold       int    `json:"threshold"`
}
