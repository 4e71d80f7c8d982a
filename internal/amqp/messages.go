package amqp

import (
	"encoding/json"
	"time"

	"ssmartr/internal/notify"
)

// CategorizationChanged tells other processes that categorization state
// moved. It carries no entities: consumers refetch from the shared store.
type CategorizationChanged struct {
	Version   uint64    `json:"version"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCategorizationChanged wraps a local notifier event for the wire.
func NewCategorizationChanged(ev notify.Event) *CategorizationChanged {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &CategorizationChanged{
		Version:   ev.Version,
		Reason:    ev.Reason,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *CategorizationChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CategorizationChangedFromJSON creates a message from JSON bytes
func CategorizationChangedFromJSON(data []byte) (*CategorizationChanged, error) {
	var msg CategorizationChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
