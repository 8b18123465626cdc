package comm

import (
	json "github.com/goccy/go-json"
)

const (
	TypeState            = "state"
	TypeVariablesCreated = "variables-created"
)

// WSMessage is the envelope pushed to browsers and published on NATS.
type WSMessage struct {
	Type string          `json:"type"` // e.g. "state", "variables-created"
	Data json.RawMessage `json:"data"`
}

// Encode wraps v into a WSMessage of the given type.
func Encode(msgType string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&WSMessage{Type: msgType, Data: data})
}
