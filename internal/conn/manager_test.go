package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsServer upgrades every request and hands the server side of each
// connection to the test over a channel.
func wsServer(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)
	return srv, conns
}

func managerFor(srv *httptest.Server) *Manager {
	base := strings.Replace(srv.URL, "http", "ws", 1)
	return NewManager(func(conversationID int) string {
		return base
	})
}

func waitEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func waitServerConn(t *testing.T, conns chan *websocket.Conn) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server connection")
		return nil
	}
}

func TestBindDeliversInboundMessages(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, 1, m.Bound())

	ev := waitEvent(t, m)
	assert.Equal(t, EventConnected, ev.Kind)
	assert.Equal(t, 1, ev.Conversation)

	server := waitServerConn(t, conns)
	require.NoError(t, server.WriteJSON(models.Message{
		ID: 10, ConversationID: 1, SenderID: 2, Content: "hi", CreatedAt: time.Now(),
	}))

	ev = waitEvent(t, m)
	require.Equal(t, EventMessage, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, 10, ev.Message.ID)
	assert.Equal(t, "hi", ev.Message.Content)
}

func TestMalformedFramesAreDropped(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))
	_ = waitEvent(t, m) // connected

	server := waitServerConn(t, conns)
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, server.WriteJSON(models.Message{ID: 11, ConversationID: 1, CreatedAt: time.Now()}))

	ev := waitEvent(t, m)
	require.Equal(t, EventMessage, ev.Kind, "the malformed frame must be skipped, not fatal")
	assert.Equal(t, 11, ev.Message.ID)
}

func TestSendRequiresConnection(t *testing.T) {
	srv, _ := wsServer(t)
	m := managerFor(srv)

	err := m.Send(1, models.SendPayload{Content: "hello"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendRejectsWrongConversation(t *testing.T) {
	srv, _ := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))

	err := m.Send(2, models.SendPayload{Content: "hello"})
	assert.ErrorIs(t, err, ErrConversationMismatch)
}

func TestSendWritesPayload(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))
	server := waitServerConn(t, conns)

	require.NoError(t, m.Send(1, models.SendPayload{Content: "hello", Attachments: []string{}}))

	var payload models.SendPayload
	require.NoError(t, server.ReadJSON(&payload))
	assert.Equal(t, "hello", payload.Content)
}

func TestAbnormalCloseIsFlagged(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)

	require.NoError(t, m.Bind(context.Background(), 1))
	_ = waitEvent(t, m) // connected

	server := waitServerConn(t, conns)
	require.NoError(t, server.Close())

	ev := waitEvent(t, m)
	require.Equal(t, EventDisconnected, ev.Kind)
	assert.True(t, ev.Abnormal)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestNormalCloseIsNotFlagged(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)

	require.NoError(t, m.Bind(context.Background(), 1))
	_ = waitEvent(t, m) // connected

	server := waitServerConn(t, conns)
	deadline := time.Now().Add(time.Second)
	require.NoError(t, server.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), deadline))

	ev := waitEvent(t, m)
	require.Equal(t, EventDisconnected, ev.Kind)
	assert.False(t, ev.Abnormal)
}

func TestRebindReplacesConnectionSilently(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))
	_ = waitEvent(t, m) // connected 1
	_ = waitServerConn(t, conns)

	require.NoError(t, m.Bind(context.Background(), 2))
	assert.Equal(t, 2, m.Bound())

	ev := waitEvent(t, m)
	assert.Equal(t, EventConnected, ev.Kind)
	assert.Equal(t, 2, ev.Conversation, "the torn-down reader must not emit a disconnect")
}

func TestBindSameConversationIsIdempotent(t *testing.T) {
	srv, conns := wsServer(t)
	m := managerFor(srv)
	defer m.Teardown()

	require.NoError(t, m.Bind(context.Background(), 1))
	_ = waitServerConn(t, conns)

	require.NoError(t, m.Bind(context.Background(), 1))

	select {
	case ws := <-conns:
		ws.Close()
		t.Fatal("a healthy binding must not be re-dialed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMarkReconnectingOnlyFromDisconnected(t *testing.T) {
	srv, _ := wsServer(t)
	m := managerFor(srv)

	m.MarkReconnecting()
	assert.Equal(t, StateReconnecting, m.State())

	require.NoError(t, m.Bind(context.Background(), 1))
	m.MarkReconnecting()
	assert.Equal(t, StateConnected, m.State())
	m.Teardown()
}
