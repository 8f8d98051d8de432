package events

import (
	"time"

	"shiftcast/pkg/contracts/domain"
)

// MessageType identifies a WebSocket message on the admin job feed.
type MessageType string

const (
	// MessageTypeJobUpdate carries a job record state transition.
	MessageTypeJobUpdate MessageType = "job:update"

	// MessageTypeConnected is sent once after a successful subscribe.
	MessageTypeConnected MessageType = "connected"
)

// JobUpdate is the WebSocket frame broadcast to admin clients whenever a
// job record changes. The full record is sent each time so clients never
// need to reconcile deltas.
type JobUpdate struct {
	Type      MessageType      `json:"type"`
	Job       domain.JobRecord `json:"job"`
	Timestamp time.Time        `json:"timestamp"`
}

// Hello is the first frame a client receives on the job feed.
type Hello struct {
	Type       MessageType `json:"type"`
	ServerTime time.Time   `json:"server_time"`
}
