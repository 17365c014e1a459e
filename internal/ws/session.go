package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sabit205/chat-app-serve/internal/identity"
	"github.com/Sabit205/chat-app-serve/internal/models"
	"github.com/Sabit205/chat-app-serve/internal/observability"
	"github.com/Sabit205/chat-app-serve/internal/presence"
	"github.com/Sabit205/chat-app-serve/internal/telemetry"
)

// ChatService is the slice of the chat core a session dispatches into.
type ChatService interface {
	MessagePage(ctx context.Context, viewerID int, targetID int) (models.UserPresence, []models.Message, error)
	Send(ctx context.Context, payload models.NewMessagePayload) error
	Sidebar(ctx context.Context, userID int) ([]models.ConversationSummary, error)
	MarkSeen(ctx context.Context, viewerID int, counterpartID int) error
}

// SessionHandler owns the lifecycle of one websocket session per
// connection: authenticate, register presence, dispatch client events,
// tear down exactly once.
type SessionHandler struct {
	hub      *Hub
	registry *presence.Registry
	resolver identity.Resolver
	chat     ChatService
	audit    *telemetry.AuditEmitter
	upgrader websocket.Upgrader
}

// NewSessionHandler constructs a SessionHandler. An empty allowedOrigin
// accepts any origin.
func NewSessionHandler(hub *Hub, registry *presence.Registry, resolver identity.Resolver, chat ChatService, audit *telemetry.AuditEmitter, allowedOrigin string) *SessionHandler {
	return &SessionHandler{
		hub:      hub,
		registry: registry,
		resolver: resolver,
		chat:     chat,
		audit:    audit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Handle authenticates the handshake, upgrades the connection and runs
// the session. Authentication failure terminates the connection before
// the upgrade, no retry.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-app/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requestID := observability.RequestID(c.Request)

	user, err := h.resolver.Resolve(ctx, bearerToken(c))
	if err != nil {
		observability.IncWSEvent("session", "auth_failed")
		h.audit.Warn(ctx, "websocket authentication failed", requestID, nil)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		DeviceID:    observability.DeviceID(c.Request),
		IP:          observability.ClientIP(c.Request),
		RequestID:   requestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := h.hub.AddClient(user.ID, conn, info)

	first, snapshot := h.registry.MarkOnline(user.ID)
	if first {
		h.hub.BroadcastAll(models.EventOnlineUsers, snapshot)
	} else if err := client.Emit(models.EventOnlineUsers, snapshot); err != nil {
		log.Printf("ws emit online snapshot failed user=%d err=%v", user.ID, err)
	}

	observability.IncWSActive("session")
	observability.IncWSEvent("session", "ws_connect")
	h.publishSessionEvent(ctx, info, "ws_connect", "")

	// The request context dies when this handler returns; the session
	// and its teardown events outlive it.
	go h.readLoop(context.WithoutCancel(ctx), client, user)
}

func (h *SessionHandler) readLoop(ctx context.Context, client *Client, user models.User) {
	var closeReason string
	defer func() {
		h.hub.RemoveClient(user.ID, client)
		if last, snapshot := h.registry.MarkOffline(user.ID); last {
			h.hub.BroadcastAll(models.EventOnlineUsers, snapshot)
		}
		observability.DecWSActive("session")
		observability.IncWSEvent("session", "ws_disconnect")
		h.publishSessionEvent(ctx, client.Info(), "ws_disconnect", closeReason)
		client.conn.Close()
	}()

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("session", "ws_error")
				h.publishSessionEvent(ctx, client.Info(), "ws_error", closeReason)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Printf("ws bad frame user=%d err=%v", user.ID, err)
			observability.IncWSEvent("session", "bad_frame")
			continue
		}

		// Handlers run as independent tasks and survive disconnects;
		// results for a closed connection are simply unobserved.
		go h.dispatch(ctx, client, user, env)
	}
}

func (h *SessionHandler) dispatch(ctx context.Context, client *Client, user models.User, env models.Envelope) {
	switch env.Event {
	case models.EventMessagePage:
		var targetID int
		if err := json.Unmarshal(env.Data, &targetID); err != nil {
			h.badPayload(env.Event, user.ID, err)
			return
		}
		profile, msgs, err := h.chat.MessagePage(ctx, user.ID, targetID)
		if err != nil {
			h.handlerFailed(env.Event, user.ID, err)
			return
		}
		if err := client.Emit(models.EventMessageUser, profile); err != nil {
			log.Printf("ws emit failed event=%s user=%d err=%v", models.EventMessageUser, user.ID, err)
			return
		}
		if err := client.Emit(models.EventMessage, msgs); err != nil {
			log.Printf("ws emit failed event=%s user=%d err=%v", models.EventMessage, user.ID, err)
		}

	case models.EventNewMessage:
		var payload models.NewMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			h.badPayload(env.Event, user.ID, err)
			return
		}
		if payload.Sender == 0 {
			payload.Sender = user.ID
		}
		if err := h.chat.Send(ctx, payload); err != nil {
			h.handlerFailed(env.Event, user.ID, err)
		}

	case models.EventSidebar:
		var userID int
		if err := json.Unmarshal(env.Data, &userID); err != nil {
			h.badPayload(env.Event, user.ID, err)
			return
		}
		if userID == 0 {
			userID = user.ID
		}
		summaries, err := h.chat.Sidebar(ctx, userID)
		if err != nil {
			h.handlerFailed(env.Event, user.ID, err)
			return
		}
		if err := client.Emit(models.EventConversation, summaries); err != nil {
			log.Printf("ws emit failed event=%s user=%d err=%v", models.EventConversation, user.ID, err)
		}

	case models.EventSeen:
		var counterpartID int
		if err := json.Unmarshal(env.Data, &counterpartID); err != nil {
			h.badPayload(env.Event, user.ID, err)
			return
		}
		if err := h.chat.MarkSeen(ctx, user.ID, counterpartID); err != nil {
			h.handlerFailed(env.Event, user.ID, err)
		}

	default:
		log.Printf("ws unknown event=%q user=%d", env.Event, user.ID)
		observability.IncWSEvent("session", "unknown_event")
	}
}

// A failed request is logged and dropped; the session stays alive.
func (h *SessionHandler) handlerFailed(event string, userID int, err error) {
	log.Printf("ws handler failed event=%q user=%d err=%v", event, userID, err)
	observability.IncWSEvent("session", "handler_error")
}

func (h *SessionHandler) badPayload(event string, userID int, err error) {
	log.Printf("ws bad payload event=%q user=%d err=%v", event, userID, err)
	observability.IncWSEvent("session", "bad_payload")
}

func (h *SessionHandler) publishSessionEvent(ctx context.Context, info ConnInfo, event, reason string) {
	var durationMS int64
	if event != "ws_connect" {
		durationMS = info.Age().Milliseconds()
	}
	_ = observability.PublishEvent(ctx, "ws_events.sessions", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.EventPayload{
			WS: observability.SessionEvent{
				Kind:       "session",
				ResourceID: info.UserID,
				Event:      event,
				ConnID:     info.ConnID,
				DurationMS: durationMS,
				Reason:     reason,
			},
			Identity: observability.SessionIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
