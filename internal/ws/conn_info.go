package ws

import "time"

// ConnInfo is the immutable metadata recorded when a connection is
// accepted, carried through the session's lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Age returns how long the connection has been open.
func (i ConnInfo) Age() time.Duration {
	return time.Since(i.ConnectedAt)
}
