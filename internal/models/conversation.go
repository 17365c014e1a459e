package models

import (
	"database/sql"
	"time"
)

// Conversation links an unordered pair of users. The pair is stored
// normalized, user_low_id < user_high_id, so at most one row can exist
// per pair.
type Conversation struct {
	ID         int       `db:"id" json:"id"`
	UserLowID  int       `db:"user_low_id" json:"user_low_id"`
	UserHighID int       `db:"user_high_id" json:"user_high_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID int) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// Counterpart returns the other participant.
func (c Conversation) Counterpart(userID int) int {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

// SidebarRow is the raw per-conversation listing row, last message and
// unseen count folded into the query. Last-message columns are null when
// the conversation has no messages yet.
type SidebarRow struct {
	ID            int            `db:"id"`
	UserLowID     int            `db:"user_low_id"`
	UserHighID    int            `db:"user_high_id"`
	UpdatedAt     time.Time      `db:"updated_at"`
	UnseenCount   int            `db:"unseen_count"`
	LastMessageID sql.NullInt64  `db:"last_message_id"`
	LastSenderID  sql.NullInt64  `db:"last_sender_id"`
	LastText      sql.NullString `db:"last_text"`
	LastImageURL  sql.NullString `db:"last_image_url"`
	LastVideoURL  sql.NullString `db:"last_video_url"`
	LastSeen      sql.NullBool   `db:"last_seen"`
	LastCreatedAt sql.NullTime   `db:"last_created_at"`
}

// Counterpart returns the participant that is not the viewer.
func (r SidebarRow) Counterpart(userID int) int {
	if r.UserLowID == userID {
		return r.UserHighID
	}
	return r.UserLowID
}

// LastMessage materializes the joined last-message columns, or nil.
func (r SidebarRow) LastMessage() *Message {
	if !r.LastMessageID.Valid {
		return nil
	}
	return &Message{
		ID:             int(r.LastMessageID.Int64),
		ConversationID: r.ID,
		SenderID:       int(r.LastSenderID.Int64),
		Text:           r.LastText.String,
		ImageURL:       r.LastImageURL.String,
		VideoURL:       r.LastVideoURL.String,
		Seen:           r.LastSeen.Bool,
		CreatedAt:      r.LastCreatedAt.Time,
	}
}

// ConversationSummary is the derived, per-viewer view pushed to clients
// as the conversation event. Recomputed on demand, never stored.
type ConversationSummary struct {
	ConversationID int          `json:"conversationId"`
	User           UserPresence `json:"user"`
	LastMessage    *Message     `json:"lastMessage,omitempty"`
	UnseenCount    int          `json:"unseenCount"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
