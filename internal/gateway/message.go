package gateway

import "time"

// Dashboard event types pushed over the websocket.
const (
	EventAlert     = "alert"
	EventAttempts  = "attempts"
	EventDepletion = "depletion"
	EventHealth    = "health"
	EventSession   = "session"
)

// Event is one push to the proctor dashboard. Data carries the
// type-specific payload already shaped for the frontend.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(eventType string, data any) *Event {
	return &Event{Type: eventType, Data: data, Timestamp: time.Now()}
}
