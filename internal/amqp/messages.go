package amqp

import (
	"encoding/json"
	"time"
)

// Report job kinds.
const (
	JobManual   = "manual"   // stock + journal reports, emailed on request
	JobKiosques = "kiosques" // grouped kiosk report
)

// ReportJobMessage asks the report worker to generate and deliver one
// report set. The worker reads the ledger itself; the message carries
// only the kind and an optional date range.
type ReportJobMessage struct {
	Kind        string    `json:"kind"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReportJobMessage creates a job message for the given kind.
func NewReportJobMessage(kind string) *ReportJobMessage {
	return &ReportJobMessage{
		Kind:        kind,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportJobMessageFromJSON creates a message from JSON bytes
func ReportJobMessageFromJSON(data []byte) (*ReportJobMessage, error) {
	var msg ReportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
