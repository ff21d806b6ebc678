package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat-client/internal/controller"
	"chat-client/internal/models"
	"chat-client/internal/rest"
	"chat-client/internal/thread"
)

// Client is the session surface the HTTP facade exposes.
type Client interface {
	CurrentUser() models.Account
	SessionID() string
	ConnectionState() string
	Conversations() ([]models.Conversation, error)
	Thread() ([]thread.Entry, int, error)
	Open(ctx context.Context, conversationID int) error
	Send(ctx context.Context, content string, attachments []string) (thread.Pending, error)
	Refresh(ctx context.Context) error
	StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error)
	Participant(ctx context.Context, userID int) (models.Participant, error)
}

// ClientHandler serves the local HTTP facade over one chat session.
type ClientHandler struct {
	client Client
}

// NewClientHandler builds a ClientHandler.
func NewClientHandler(client Client) *ClientHandler {
	return &ClientHandler{client: client}
}

// Me returns the authenticated account the session runs as.
func (h *ClientHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.CurrentUser())
}

// Status reports session and connection state.
func (h *ClientHandler) Status(c *gin.Context) {
	_, active, _ := h.client.Thread()
	c.JSON(http.StatusOK, gin.H{
		"session_id":          h.client.SessionID(),
		"connection_state":    h.client.ConnectionState(),
		"active_conversation": active,
	})
}

// ListConversations returns the conversation list, most recent first, with
// counterpart profiles attached from the cache.
func (h *ClientHandler) ListConversations(c *gin.Context) {
	convs, err := h.client.Conversations()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "conversation list unavailable"})
		return
	}

	selfID := h.client.CurrentUser().ID

	type conversationResponse struct {
		models.Conversation
		CounterpartName string `json:"counterpart_name,omitempty"`
	}

	responses := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		name := ""
		if p, err := h.client.Participant(c.Request.Context(), conv.Counterpart(selfID)); err == nil {
			name = p.DisplayName
		}
		responses = append(responses, conversationResponse{Conversation: conv, CounterpartName: name})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// OpenConversation makes a conversation active: thread reset, history fetch
// and websocket rebind all start here.
func (h *ClientHandler) OpenConversation(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if err := h.client.Open(c.Request.Context(), conversationID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rest.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not open conversation"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetThread returns the open thread, oldest first. Pending entries carry
// their local id and pending=true until the server echo reconciles them.
func (h *ClientHandler) GetThread(c *gin.Context) {
	entries, active, err := h.client.Thread()
	if active == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "no open conversation"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "thread unavailable"})
		return
	}

	type entryResponse struct {
		ID             string    `json:"id"`
		ConversationID int       `json:"conversation_id"`
		SenderID       int       `json:"sender_id"`
		SenderName     string    `json:"sender_name,omitempty"`
		Content        string    `json:"content"`
		Attachments    []string  `json:"attachments"`
		CreatedAt      time.Time `json:"created_at"`
		Pending        bool      `json:"pending"`
		IsRead         bool      `json:"is_read"`
	}

	responses := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		name := ""
		if p, err := h.client.Participant(c.Request.Context(), entry.Sender()); err == nil {
			name = p.DisplayName
		}
		switch e := entry.(type) {
		case thread.Confirmed:
			responses = append(responses, entryResponse{
				ID:             strconv.Itoa(e.Message.ID),
				ConversationID: e.Message.ConversationID,
				SenderID:       e.Message.SenderID,
				SenderName:     name,
				Content:        e.Message.Content,
				Attachments:    e.Message.Attachments,
				CreatedAt:      e.Message.CreatedAt,
				IsRead:         e.Message.IsRead,
			})
		case thread.Pending:
			responses = append(responses, entryResponse{
				ID:             e.LocalID,
				ConversationID: e.ConversationID,
				SenderID:       e.SenderID,
				SenderName:     name,
				Content:        e.Content,
				Attachments:    e.Attachments,
				CreatedAt:      e.CreatedAt,
				Pending:        true,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": active, "messages": responses})
}

// PostMessage sends a message on the open conversation.
func (h *ClientHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content     string   `json:"content" binding:"required"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := h.client.Send(c.Request.Context(), req.Content, req.Attachments)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, controller.ErrNoActiveConversation) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"local_id": pending.LocalID, "conversation_id": pending.ConversationID})
}

// Refresh re-fetches the conversation list from the server.
func (h *ClientHandler) Refresh(c *gin.Context) {
	if err := h.client.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// StartConversation creates or resumes a conversation about a project and
// opens it.
func (h *ClientHandler) StartConversation(c *gin.Context) {
	var req struct {
		RecipientID int  `json:"recipient_id" binding:"required"`
		ProjectID   *int `json:"project_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RecipientID == h.client.CurrentUser().ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	conv, err := h.client.StartConversation(c.Request.Context(), models.StartConversationRequest{
		Participant2ID: req.RecipientID,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not start conversation"})
		return
	}

	c.JSON(http.StatusCreated, conv)
}
