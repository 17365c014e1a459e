package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/samber/lo"

	"github.com/Sabit205/chat-app-serve/internal/models"
	"github.com/Sabit205/chat-app-serve/internal/observability"
	"github.com/Sabit205/chat-app-serve/internal/repositories"
)

// Fanout delivers an event to every live session of a user. Delivery is
// best effort; persisted messages are the durable record.
type Fanout interface {
	EmitToUser(userID int, event string, data any)
}

// Presence reports point-in-time online state.
type Presence interface {
	IsOnline(userID int) bool
}

// Service implements the message pipeline, conversation resolution,
// seen-state updates and the sidebar query.
type Service struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	presence      Presence
	fanout        Fanout
}

// NewService builds a Service.
func NewService(conversations repositories.ConversationRepository, messages repositories.MessageRepository, users repositories.UserRepository, presence Presence, fanout Fanout) *Service {
	return &Service{
		conversations: conversations,
		messages:      messages,
		users:         users,
		presence:      presence,
		fanout:        fanout,
	}
}

// MessagePage loads the target user's profile and the ordered message
// history between viewer and target. With no conversation yet, the
// history is empty, not an error.
func (s *Service) MessagePage(ctx context.Context, viewerID int, targetID int) (models.UserPresence, []models.Message, error) {
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			observability.IncStoreFailure("message_page")
		}
		return models.UserPresence{}, nil, fmt.Errorf("load user %d: %w", targetID, err)
	}
	profile := target.Presence(s.presence.IsOnline(targetID))

	conv, err := s.conversations.FindByPair(ctx, viewerID, targetID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return profile, []models.Message{}, nil
	}
	if err != nil {
		observability.IncStoreFailure("message_page")
		return models.UserPresence{}, nil, fmt.Errorf("load conversation: %w", err)
	}

	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		observability.IncStoreFailure("message_page")
		return models.UserPresence{}, nil, fmt.Errorf("load messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return profile, msgs, nil
}

// Send persists a message and fans the full ordered message list plus
// recomputed conversation summaries out to both participants, so
// multi-tab views of either side stay consistent.
func (s *Service) Send(ctx context.Context, payload models.NewMessagePayload) error {
	conv, err := s.conversations.FindOrCreate(ctx, payload.Sender, payload.Receiver)
	if err != nil {
		if !errors.Is(err, repositories.ErrSelfConversation) {
			observability.IncStoreFailure("send")
		}
		return fmt.Errorf("resolve conversation: %w", err)
	}

	if _, err := s.messages.Append(ctx, conv.ID, payload.Sender, payload.Content()); err != nil {
		observability.IncStoreFailure("send")
		return fmt.Errorf("append message: %w", err)
	}

	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		observability.IncStoreFailure("send")
		return fmt.Errorf("reload messages: %w", err)
	}

	s.fanout.EmitToUser(payload.Sender, models.EventMessage, msgs)
	s.fanout.EmitToUser(payload.Receiver, models.EventMessage, msgs)
	s.pushSummaries(ctx, payload.Sender, payload.Receiver)
	return nil
}

// MarkSeen flips every message authored by the counterpart in the shared
// conversation to seen and pushes recomputed summaries to both sides.
// Idempotent; with no conversation between the pair it is a no-op.
func (s *Service) MarkSeen(ctx context.Context, viewerID int, counterpartID int) error {
	conv, err := s.conversations.FindByPair(ctx, viewerID, counterpartID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return nil
	}
	if err != nil {
		observability.IncStoreFailure("seen")
		return fmt.Errorf("load conversation: %w", err)
	}

	if _, err := s.messages.MarkSeen(ctx, conv.ID, counterpartID); err != nil {
		observability.IncStoreFailure("seen")
		return fmt.Errorf("mark seen: %w", err)
	}

	s.pushSummaries(ctx, viewerID, counterpartID)
	return nil
}

// Sidebar returns the user's conversation summaries, most recently
// updated first.
func (s *Service) Sidebar(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	rows, err := s.conversations.ListSidebar(ctx, userID)
	if err != nil {
		observability.IncStoreFailure("sidebar")
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	counterparts := lo.Uniq(lo.Map(rows, func(r models.SidebarRow, _ int) int {
		return r.Counterpart(userID)
	}))
	profiles, err := s.users.BulkUsers(ctx, counterparts)
	if err != nil {
		observability.IncStoreFailure("sidebar")
		return nil, fmt.Errorf("load counterparts: %w", err)
	}
	byID := lo.KeyBy(profiles, func(u models.User) int { return u.ID })

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		friendID := row.Counterpart(userID)
		summaries = append(summaries, models.ConversationSummary{
			ConversationID: row.ID,
			User:           byID[friendID].Presence(s.presence.IsOnline(friendID)),
			LastMessage:    row.LastMessage(),
			UnseenCount:    row.UnseenCount,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return summaries, nil
}

// pushSummaries recomputes and emits conversation summaries for each
// participant. Best effort: one side failing must not fail the other.
func (s *Service) pushSummaries(ctx context.Context, userIDs ...int) {
	for _, id := range userIDs {
		summaries, err := s.Sidebar(ctx, id)
		if err != nil {
			log.Printf("sidebar recompute failed user=%d err=%v", id, err)
			continue
		}
		s.fanout.EmitToUser(id, models.EventConversation, summaries)
	}
}
