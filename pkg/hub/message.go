// Package hub fans messages out to websocket clients with a single
// goroutine owning the client set.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (JPEG frames)
	BinaryMessage
)

// Message is one websocket frame queued for clients.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event is the JSON envelope pushed to the UI.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

// NewEvent encodes an event as a JSON message.
func NewEvent(typ string, data any) (Message, error) {
	b, err := json.Marshal(Event{Type: typ, Data: data, At: time.Now()})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(b), nil
}
