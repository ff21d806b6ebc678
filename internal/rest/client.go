package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// ErrUnauthenticated is returned when the auth collaborator rejects the bearer
// credential. Callers must treat it as fatal for the session.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFound is returned for 404 responses, e.g. a participant profile that
// has not been created yet.
var ErrNotFound = errors.New("not found")

// Service is the slice of the marketplace API the messaging client consumes.
type Service interface {
	CurrentAccount(ctx context.Context) (models.Account, error)
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID int) ([]models.Message, error)
	StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error)
	GetUser(ctx context.Context, userID int) (models.Participant, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient builds a Client for the given API root and bearer credential.
func NewClient(base, token string) *Client {
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CurrentAccount resolves the authenticated user via the auth service.
func (c *Client) CurrentAccount(ctx context.Context) (models.Account, error) {
	var account models.Account
	if err := c.get(ctx, "auth.me", "/api/v1/auth/me", &account); err != nil {
		return models.Account{}, err
	}
	if account.ID == 0 {
		return models.Account{}, ErrUnauthenticated
	}
	return account, nil
}

// ListConversations fetches the conversation summaries for the local user.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.get(ctx, "chat.conversations", "/api/v1/chat/conversations", &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetMessages fetches the message history of a conversation, ascending by
// created_at. The backend marks the returned messages read for the caller.
func (c *Client) GetMessages(ctx context.Context, conversationID int) ([]models.Message, error) {
	var messages []models.Message
	path := "/api/v1/chat/" + strconv.Itoa(conversationID) + "/messages"
	if err := c.get(ctx, "chat.messages", path, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// StartConversation creates or returns the conversation with a counterpart.
func (c *Client) StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error) {
	var conversation models.Conversation
	if err := c.do(ctx, "chat.start", http.MethodPost, "/api/v1/chat/start", req, &conversation); err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// GetUser fetches a participant profile.
func (c *Client) GetUser(ctx context.Context, userID int) (models.Participant, error) {
	var participant models.Participant
	path := "/api/v1/users/" + strconv.Itoa(userID)
	if err := c.get(ctx, "users.get", path, &participant); err != nil {
		return models.Participant{}, err
	}
	return participant, nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := otel.Tracer("chat-client/rest").Start(ctx, "rest."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := newRequest(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.IncRESTRequest(op, "error")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	observability.IncRESTRequest(op, strconv.Itoa(resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthenticated
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	if body == nil {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		return req, nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
