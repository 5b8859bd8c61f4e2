package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger change operations carried by LedgerChangedMessage.
const (
	OperationAddMember    = "add_member"
	OperationRenameMember = "rename_member"
	OperationRemoveMember = "remove_member"
	OperationRecordCounts = "record_counts"
	OperationResync       = "resync"
)

// LedgerChangedMessage announces that the persisted ledger changed. It only
// describes the change; consumers reload the ledger to act on it.
type LedgerChangedMessage struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Member    string    `json:"member,omitempty"`
	NewMember string    `json:"new_member,omitempty"`
	Week      string    `json:"week,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message with a fresh ID and the current time
func NewLedgerChangedMessage(operation, member, week string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ID:        uuid.NewString(),
		Operation: operation,
		Member:    member,
		Week:      week,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Operation == "" {
		return nil, fmt.Errorf("message %q has no operation", msg.ID)
	}
	return &msg, nil
}
