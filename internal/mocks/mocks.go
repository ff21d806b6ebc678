package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/models"
	"chat-client/internal/thread"
)

type RESTServiceMock struct {
	mock.Mock
}

func (m *RESTServiceMock) CurrentAccount(ctx context.Context) (models.Account, error) {
	args := m.Called(ctx)
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account, args.Error(1)
}

func (m *RESTServiceMock) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *RESTServiceMock) GetMessages(ctx context.Context, conversationID int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *RESTServiceMock) StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error) {
	args := m.Called(ctx, req)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *RESTServiceMock) GetUser(ctx context.Context, userID int) (models.Participant, error) {
	args := m.Called(ctx, userID)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}

type ClientMock struct {
	mock.Mock
}

func (m *ClientMock) CurrentUser() models.Account {
	args := m.Called()
	var account models.Account
	if val := args.Get(0); val != nil {
		account = val.(models.Account)
	}
	return account
}

func (m *ClientMock) SessionID() string {
	args := m.Called()
	return args.String(0)
}

func (m *ClientMock) ConnectionState() string {
	args := m.Called()
	return args.String(0)
}

func (m *ClientMock) Conversations() ([]models.Conversation, error) {
	args := m.Called()
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ClientMock) Thread() ([]thread.Entry, int, error) {
	args := m.Called()
	var entries []thread.Entry
	if val := args.Get(0); val != nil {
		entries = val.([]thread.Entry)
	}
	return entries, args.Int(1), args.Error(2)
}

func (m *ClientMock) Open(ctx context.Context, conversationID int) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ClientMock) Send(ctx context.Context, content string, attachments []string) (thread.Pending, error) {
	args := m.Called(ctx, content, attachments)
	var pending thread.Pending
	if val := args.Get(0); val != nil {
		pending = val.(thread.Pending)
	}
	return pending, args.Error(1)
}

func (m *ClientMock) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ClientMock) StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error) {
	args := m.Called(ctx, req)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ClientMock) Participant(ctx context.Context, userID int) (models.Participant, error) {
	args := m.Called(ctx, userID)
	var p models.Participant
	if val := args.Get(0); val != nil {
		p = val.(models.Participant)
	}
	return p, args.Error(1)
}
