package models

import "time"

// Message belongs to exactly one conversation. Text and media references
// are all optional; seen only ever transitions false to true.
type Message struct {
	ID             int       `db:"id" json:"id"`
	ConversationID int       `db:"conversation_id" json:"conversationId"`
	SenderID       int       `db:"sender_id" json:"msgByUserId"`
	Text           string    `db:"text" json:"text"`
	ImageURL       string    `db:"image_url" json:"imageUrl"`
	VideoURL       string    `db:"video_url" json:"videoUrl"`
	Seen           bool      `db:"seen" json:"seen"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// MessageContent is the optional-text/optional-media bundle of an
// incoming message. A bundle with neither text nor media is permitted.
type MessageContent struct {
	Text     string
	ImageURL string
	VideoURL string
}
