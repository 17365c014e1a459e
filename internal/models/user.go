package models

import "time"

// User is the identity record owned by the external identity system.
// This service only reads it.
type User struct {
	ID         int       `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	ProfilePic string    `db:"profile_pic" json:"profile_pic"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserPresence is the public profile payload annotated with the
// point-in-time online flag. Sent as the message-user event.
type UserPresence struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ProfilePic string `json:"profile_pic"`
	Online     bool   `json:"online"`
}

// Presence builds the presence payload for the user.
func (u User) Presence(online bool) UserPresence {
	return UserPresence{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Online:     online,
	}
}
