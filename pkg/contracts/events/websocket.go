// Package events contains the event contracts pushed to dashboard clients
// over WebSocket.
package events

import (
	"strings"
	"time"
)

// MessageType names a WebSocket message. Dataset lifecycle types share the
// "dataset:" prefix.
type MessageType string

const (
	MessageTypeConnect         MessageType = "connect"
	MessageTypeDatasetLoaded   MessageType = "dataset:loaded"
	MessageTypeDatasetReplaced MessageType = "dataset:replaced"
)

// IsDataset reports whether t announces a change of the active dataset
func (t MessageType) IsDataset() bool {
	return strings.HasPrefix(string(t), "dataset:")
}

// BaseMessage is the envelope shared by every message
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is a BaseMessage with its payload
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// DatasetEvent tells clients that the active dataset changed and cached
// views should be refetched
type DatasetEvent struct {
	Source       string `json:"source"`
	Fingerprint  string `json:"fingerprint"`
	Records      int    `json:"records"`
	DroppedRows  int    `json:"dropped_rows"`
	PreviousHash string `json:"previous_fingerprint,omitempty"`
}
