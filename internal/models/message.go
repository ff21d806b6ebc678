package models

import "time"

// Message is a confirmed chat message as delivered by the backend, over REST
// or over the live connection. The backend is the id and timestamp authority.
type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	Content        string    `json:"content"`
	Attachments    []string  `json:"attachments,omitempty"`
	IsRead         bool      `json:"is_read,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SendPayload is the outbound websocket frame. Only content and attachments
// are carried; the backend assigns id and created_at.
type SendPayload struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}
