package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

func TestCurrentAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.Account{ID: 7, Name: "Robin"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	account, err := c.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, account.ID)
	assert.Equal(t, "Robin", account.Name)
}

func TestCurrentAccountRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad")
	_, err := c.CurrentAccount(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCurrentAccountEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Account{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.CurrentAccount(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListConversations(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/conversations", r.URL.Path)
		json.NewEncoder(w).Encode([]models.Conversation{
			{ID: 1, Participant1ID: 7, Participant2ID: 2, LastMessageAt: &last, UnreadCount: 3},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 3, convs[0].UnreadCount)
	require.NotNil(t, convs[0].LastMessageAt)
	assert.True(t, convs[0].LastMessageAt.Equal(last))
}

func TestGetMessagesPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/42/messages", r.URL.Path)
		json.NewEncoder(w).Encode([]models.Message{{ID: 1, ConversationID: 42, Content: "hi"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	msgs, err := c.GetMessages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestStartConversationPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat/start", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.StartConversationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Participant2ID)

		json.NewEncoder(w).Encode(models.Conversation{ID: 5, Participant1ID: 7, Participant2ID: 2})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	conv, err := c.StartConversation(context.Background(), models.StartConversationRequest{Participant2ID: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, conv.ID)
}

func TestGetUserNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.ListConversations(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrNotFound)
}
