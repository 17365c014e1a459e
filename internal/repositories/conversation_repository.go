package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Sabit205/chat-app-serve/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot create conversation with self")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID int, friendID int) (models.Conversation, error)
	FindByPair(ctx context.Context, userID int, friendID int) (models.Conversation, error)
	ListSidebar(ctx context.Context, userID int) ([]models.SidebarRow, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// normalizePair maps an unordered user pair onto the stored (low, high)
// key so both argument orders address the same row.
func normalizePair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

const conversationColumns = `id, user_low_id, user_high_id, created_at, updated_at`

// FindOrCreate returns the single conversation for the pair, creating it
// when absent. Concurrent first-contact is resolved by the unique index
// on the normalized pair: the insert uses ON CONFLICT DO NOTHING, and a
// losing writer re-reads the row the winner created.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID int, friendID int) (models.Conversation, error) {
	if userID == friendID {
		return models.Conversation{}, ErrSelfConversation
	}
	low, high := normalizePair(userID, friendID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_low_id=$1 AND user_high_id=$2`, low, high)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	err = r.db.GetContext(ctx, &conv,
		`INSERT INTO conversations (user_low_id, user_high_id) VALUES ($1, $2)
         ON CONFLICT (user_low_id, user_high_id) DO NOTHING
         RETURNING `+conversationColumns, low, high)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the insert race; the row exists now.
		err = r.db.GetContext(ctx, &conv,
			`SELECT `+conversationColumns+` FROM conversations WHERE user_low_id=$1 AND user_high_id=$2`, low, high)
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// FindByPair looks up the conversation for the pair without creating it.
func (r *ConversationRepo) FindByPair(ctx context.Context, userID int, friendID int) (models.Conversation, error) {
	low, high := normalizePair(userID, friendID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE user_low_id=$1 AND user_high_id=$2`, low, high)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListSidebar returns the user's conversations, most recently updated
// first, with unseen count and last message folded into each row.
func (r *ConversationRepo) ListSidebar(ctx context.Context, userID int) ([]models.SidebarRow, error) {
	query := `SELECT c.id, c.user_low_id, c.user_high_id, c.updated_at,
            (SELECT COUNT(*) FROM messages m
                WHERE m.conversation_id = c.id AND m.seen = FALSE AND m.sender_id <> $1) AS unseen_count,
            lm.id AS last_message_id, lm.sender_id AS last_sender_id, lm.text AS last_text,
            lm.image_url AS last_image_url, lm.video_url AS last_video_url,
            lm.seen AS last_seen, lm.created_at AS last_created_at
        FROM conversations c
        LEFT JOIN LATERAL (
            SELECT id, sender_id, text, image_url, video_url, seen, created_at
            FROM messages m WHERE m.conversation_id = c.id
            ORDER BY m.id DESC LIMIT 1
        ) lm ON TRUE
        WHERE c.user_low_id = $1 OR c.user_high_id = $1
        ORDER BY c.updated_at DESC`

	var rows []models.SidebarRow
	err := r.db.SelectContext(ctx, &rows, query, userID)
	return rows, err
}
