package models

import "encoding/json"

// Websocket event names. Client-to-server events carry a request, the
// rest are pushed by the server.
const (
	EventMessagePage = "message-page"
	EventNewMessage  = "new message"
	EventSidebar     = "sidebar"
	EventSeen        = "seen"

	EventMessageUser  = "message-user"
	EventMessage      = "message"
	EventConversation = "conversation"
	EventOnlineUsers  = "onlineUser"
)

// Envelope is the websocket frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMessagePayload is the data of a new message client event.
type NewMessagePayload struct {
	Sender   int    `json:"sender"`
	Receiver int    `json:"receiver"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	VideoURL string `json:"videoUrl"`
}

// Content bundles the optional fields of the payload.
func (p NewMessagePayload) Content() MessageContent {
	return MessageContent{Text: p.Text, ImageURL: p.ImageURL, VideoURL: p.VideoURL}
}
