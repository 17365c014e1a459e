package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Sabit205/chat-app-serve/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Append(ctx context.Context, conversationID int, senderID int, content models.MessageContent) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	MarkSeen(ctx context.Context, conversationID int, authorID int) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, text, image_url, video_url, seen, created_at`

// Append stores a message and bumps the conversation's updated_at in one
// transaction, so a persisted message is always linked to a live
// conversation ordering.
func (r *MessageRepo) Append(ctx context.Context, conversationID int, senderID int, content models.MessageContent) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, text, image_url, video_url)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		conversationID, senderID, content.Text, content.ImageURL, content.VideoURL).
		StructScan(&msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id=$1`, conversationID); err != nil {
		return models.Message{}, fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, fmt.Errorf("commit append: %w", err)
	}
	return msg, nil
}

// ListByConversation returns the conversation's messages in creation
// order.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY id ASC`, conversationID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkSeen flips every unseen message authored by authorID in the
// conversation to seen. Messages already seen are untouched, so the call
// is idempotent. Returns the number of rows changed.
func (r *MessageRepo) MarkSeen(ctx context.Context, conversationID int, authorID int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET seen = TRUE WHERE conversation_id=$1 AND sender_id=$2 AND seen = FALSE`,
		conversationID, authorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
