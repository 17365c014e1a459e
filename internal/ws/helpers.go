package ws

import "github.com/google/uuid"

// newConnID labels a connection for lifecycle events and logs.
func newConnID() string {
	return uuid.NewString()
}
