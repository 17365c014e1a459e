package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher delivers audit records to the event bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// AuditEmitter writes structured audit records for security-relevant
// actions. Best effort: a failed publish is logged and dropped.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Info records a routine audit event. Safe on a nil emitter.
func (e *AuditEmitter) Info(ctx context.Context, text, requestID string, userID *string) {
	e.emit(ctx, "INFO", text, requestID, userID)
}

// Warn records a suspicious or rejected action. Safe on a nil emitter.
func (e *AuditEmitter) Warn(ctx context.Context, text, requestID string, userID *string) {
	e.emit(ctx, "WARN", text, requestID, userID)
}

func (e *AuditEmitter) emit(ctx context.Context, level, text, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level: level,
			Text:  text,
		},
	}

	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
