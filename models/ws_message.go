package models

import (
	"encoding/json"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RawWSMessage is the inbound variant: the payload is left undecoded
// so that each handler can unmarshal its own shape.
type RawWSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
