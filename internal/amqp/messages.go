package amqp

import (
	"encoding/json"
	"time"
)

// ChangeMessage announces that the transaction collection changed. It
// carries only the mutation kind, the record id and the affected
// period; consumers reload state from storage rather than trusting the
// message body.
type ChangeMessage struct {
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(op, id string, month, year int) *ChangeMessage {
	return &ChangeMessage{
		Op:        op,
		ID:        id,
		Month:     month,
		Year:      year,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
