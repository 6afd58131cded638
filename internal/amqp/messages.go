package amqp

import (
	"encoding/json"
	"strings"
	"time"
)

// EntityAll is used when the publisher does not say what changed.
const EntityAll = "all"

// DataChangedMessage announces that invoice data was written by the
// ingestion side. It carries no payload: consumers re-read the store.
type DataChangedMessage struct {
	Entity    string    `json:"entity"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDataChangedMessage(entity string) *DataChangedMessage {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		entity = EntityAll
	}
	return &DataChangedMessage{
		Entity:    entity,
		Timestamp: time.Now().UTC(),
	}
}

func (m *DataChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DataChangedMessageFromJSON(data []byte) (*DataChangedMessage, error) {
	var msg DataChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Entity) == "" {
		msg.Entity = EntityAll
	}
	return &msg, nil
}
