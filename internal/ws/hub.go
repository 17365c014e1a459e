package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Sabit205/chat-app-serve/internal/models"
	"github.com/Sabit205/chat-app-serve/internal/observability"
)

// Hub maintains the live sessions of every user, keyed by user id. A
// user may hold zero or more connections; emitting to the user reaches
// all of them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]map[*Client]bool
}

// Client is one registered websocket connection.
type Client struct {
	conn *websocket.Conn
	info ConnInfo
	// gorilla/websocket allows a single concurrent writer per conn.
	writeMu sync.Mutex
}

// Info returns the connection metadata recorded at registration.
func (c *Client) Info() ConnInfo {
	return c.info
}

// Emit writes one event frame to the connection.
func (c *Client) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(models.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*Client]bool)}
}

// AddClient registers a websocket connection under the user's room.
func (h *Hub) AddClient(userID int, conn *websocket.Conn, info ConnInfo) *Client {
	client := &Client{conn: conn, info: info}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*Client]bool)
	}
	h.rooms[userID][client] = true
	return client
}

// RemoveClient removes a connection from the user's room.
func (h *Hub) RemoveClient(userID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, userID)
		}
	}
}

// EmitToUser delivers an event to every live session of the user.
// Best effort: with no active session the event is simply not observed,
// and sessions whose write fails are dropped.
func (h *Hub) EmitToUser(userID int, event string, data any) {
	for _, client := range h.clientsOf(userID) {
		if err := client.Emit(event, data); err != nil {
			log.Printf("websocket write error: %v", err)
			client.conn.Close()
			h.RemoveClient(userID, client)
			h.publishWSError(userID, client, err)
		}
	}
}

// BroadcastAll delivers an event to every connected session.
func (h *Hub) BroadcastAll(event string, data any) {
	h.mu.RLock()
	targets := make(map[int][]*Client, len(h.rooms))
	for userID, clients := range h.rooms {
		for client := range clients {
			targets[userID] = append(targets[userID], client)
		}
	}
	h.mu.RUnlock()

	for userID, clients := range targets {
		for _, client := range clients {
			if err := client.Emit(event, data); err != nil {
				log.Printf("websocket write error: %v", err)
				client.conn.Close()
				h.RemoveClient(userID, client)
				h.publishWSError(userID, client, err)
			}
		}
	}
}

func (h *Hub) clientsOf(userID int) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.rooms[userID]))
	for client := range h.rooms[userID] {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) publishWSError(userID int, client *Client, err error) {
	info := client.Info()
	_ = observability.PublishEvent(context.Background(), "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload: observability.EventPayload{
			WS: observability.SessionEvent{
				Kind:       "session",
				ResourceID: userID,
				Event:      "ws_error",
				ConnID:     info.ConnID,
				DurationMS: info.Age().Milliseconds(),
				Reason:     err.Error(),
			},
			Identity: observability.SessionIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent("session", "ws_error")
}
