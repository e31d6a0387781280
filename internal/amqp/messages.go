package amqp

import (
	"encoding/json"
	"time"

	"finanzen/internal/core"
)

// ImportCompletedMessage announces a finished CSV import. It carries only the
// import id and summary; the worker loads the transactions from the database.
type ImportCompletedMessage struct {
	ImportID        int64     `json:"import_id"`
	Filename        string    `json:"filename"`
	TransactionsNew int       `json:"transactions_new"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewImportCompletedMessage creates a message for imp stamped with the current time.
func NewImportCompletedMessage(imp core.Import) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		ImportID:        imp.ID,
		Filename:        imp.Filename,
		TransactionsNew: imp.TransactionsNew,
		Timestamp:       time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON decodes a message; a missing import id is an error.
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ImportID <= 0 {
		return nil, errMissingImportID
	}
	return &msg, nil
}
