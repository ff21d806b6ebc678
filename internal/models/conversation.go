package models

import "time"

// Conversation is a persistent two-party message channel, optionally scoped to
// a marketplace project. Summaries returned by the backend carry the last
// message and the unread count for the requesting user.
type Conversation struct {
	ID             int        `json:"id"`
	ProjectID      *int       `json:"project_id,omitempty"`
	Participant1ID int        `json:"participant1_id"`
	Participant2ID int        `json:"participant2_id"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UnreadCount    int        `json:"unread_count"`
	LastMessage    *Message   `json:"last_message,omitempty"`
}

// Counterpart returns the other participant of the conversation.
func (c Conversation) Counterpart(selfID int) int {
	if c.Participant1ID == selfID {
		return c.Participant2ID
	}
	return c.Participant1ID
}

// ActivityAt is the sort key for the conversation list: the time of the last
// message, falling back to creation time for conversations with no messages.
func (c Conversation) ActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// StartConversationRequest asks the backend to create (or return) the
// conversation with the given counterpart.
type StartConversationRequest struct {
	Participant2ID int  `json:"participant2_id"`
	ProjectID      *int `json:"project_id,omitempty"`
}
