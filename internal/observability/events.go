package observability

// EventEnvelope wraps a websocket lifecycle event for the event bus.
type EventEnvelope struct {
	EventType string       `json:"event_type"`
	EventName string       `json:"event_name"`
	Payload   EventPayload `json:"payload"`
}

// EventPayload pairs the session slice of an event with the identity of
// the user behind the connection.
type EventPayload struct {
	WS       SessionEvent    `json:"ws"`
	Identity SessionIdentity `json:"identity"`
}

// SessionEvent describes what happened to one websocket session.
type SessionEvent struct {
	Kind       string `json:"kind"`
	ResourceID int    `json:"resource_id"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// SessionIdentity identifies the connection owner.
type SessionIdentity struct {
	UserID   int    `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

// BuildHeaders assembles propagation headers for a published event.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
