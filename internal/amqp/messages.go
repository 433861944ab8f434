package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published on ledger mutations.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"
)

// TransactionEvent is the lightweight envelope published when the ledger
// changes. It carries identifiers only; consumers fetch the current row
// from the database, so a stale event never overwrites newer state.
type TransactionEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent builds an envelope with a fresh event ID.
func NewTransactionEvent(eventType string, transactionID, userID int64) *TransactionEvent {
	return &TransactionEvent{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON creates an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
