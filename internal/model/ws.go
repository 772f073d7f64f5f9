package model

import "time"

// WebSocket message types.
const (
	WSMessageTypeSnapshot = "snapshot"
	WSMessageTypeSearch   = "search"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
	WSMessageTypeError    = "error"
)

// WebSocketMessage represents a message exchanged over the dog list feed.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Query     string    `json:"query,omitempty"`
	List      *DogList  `json:"list,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotMessage creates a feed message carrying the visible list.
func NewSnapshotMessage(list DogList) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeSnapshot,
		Query:     list.Query,
		List:      &list,
		Timestamp: time.Now().UTC(),
	}
}

// NewPongMessage creates the reply to a client ping.
func NewPongMessage() WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypePong,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorMessage creates a feed message reporting a client error.
func NewErrorMessage(msg string) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeError,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
}
