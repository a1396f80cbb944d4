package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"capigastos/internal/sheets"
)

// ChangeMessage announces that an instance wrote to a table. Receivers drop
// their cached snapshot of that table; the message carries no row data.
type ChangeMessage struct {
	Table     sheets.Table `json:"table"`
	Operation string       `json:"operation"`
	Origin    string       `json:"origin"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewChangeMessage creates a message stamped with the current time.
func NewChangeMessage(table sheets.Table, operation, origin string) *ChangeMessage {
	return &ChangeMessage{
		Table:     table,
		Operation: operation,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Table.IsValid() {
		return nil, fmt.Errorf("%w: %q", sheets.ErrUnknownTable, msg.Table)
	}
	return &msg, nil
}
