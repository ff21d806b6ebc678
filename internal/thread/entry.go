package thread

import (
	"time"

	"chat-client/internal/models"
)

// Entry is one row of the active thread: either a message confirmed by the
// backend or a locally created optimistic message still awaiting its echo.
// The two cases live in different id spaces (server ids vs session-local
// pending ids), so they are distinct types rather than a flag on one struct.
type Entry interface {
	Conversation() int
	Sender() int
	Body() string
	SentAt() time.Time

	threadEntry()
}

// Confirmed wraps a backend message bearing a server-assigned id.
type Confirmed struct {
	Message models.Message
}

func (e Confirmed) Conversation() int { return e.Message.ConversationID }
func (e Confirmed) Sender() int       { return e.Message.SenderID }
func (e Confirmed) Body() string      { return e.Message.Content }
func (e Confirmed) SentAt() time.Time { return e.Message.CreatedAt }
func (Confirmed) threadEntry()        {}

// Pending is an optimistic message shown before backend confirmation.
// LocalID is unique within the client session only.
type Pending struct {
	LocalID        string
	ConversationID int
	SenderID       int
	Content        string
	Attachments    []string
	CreatedAt      time.Time
}

func (e Pending) Conversation() int { return e.ConversationID }
func (e Pending) Sender() int       { return e.SenderID }
func (e Pending) Body() string      { return e.Content }
func (e Pending) SentAt() time.Time { return e.CreatedAt }
func (Pending) threadEntry()        {}
