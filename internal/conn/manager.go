package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// State is the connection lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Send when no live connection exists. Sends
// are never queued; the caller rolls back its optimistic entry.
var ErrNotConnected = errors.New("websocket not connected")

// ErrConversationMismatch is returned by Send when the live connection is
// bound to a different conversation than the one being sent to.
var ErrConversationMismatch = errors.New("connection bound to another conversation")

// ErrBindInProgress is returned when a bind is attempted while another one
// is still dialing. It keeps a rapid double-switch from producing two live
// connections.
var ErrBindInProgress = errors.New("bind already in progress")

// EventKind discriminates transport events delivered to the consumer.
type EventKind int

const (
	// EventConnected: a bind completed and the connection is live.
	EventConnected EventKind = iota
	// EventMessage: a well-formed inbound message frame.
	EventMessage
	// EventDisconnected: the connection closed. Abnormal closes are the
	// consumer's cue to schedule the single reconnect attempt.
	EventDisconnected
)

// Event is one transport occurrence, sent on the manager's event channel.
type Event struct {
	Kind         EventKind
	Conversation int
	Message      *models.Message
	Abnormal     bool
}

const eventBufferSize = 64

// Manager owns the lifecycle of the single live websocket connection, bound
// to at most one conversation at a time. Inbound frames and lifecycle changes
// are forwarded as Events; the consumer (the controller) decides what they
// mean for the stores.
type Manager struct {
	buildURL func(conversationID int) string
	dialer   *websocket.Dialer
	events   chan Event

	mu          sync.Mutex
	state       State
	bound       int
	conn        *websocket.Conn
	gen         uint64
	connecting  bool
	connectedAt time.Time
}

// NewManager builds a manager dialing URLs produced by buildURL.
func NewManager(buildURL func(conversationID int) string) *Manager {
	return &Manager{
		buildURL: buildURL,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events:   make(chan Event, eventBufferSize),
	}
}

// Events returns the channel transport events are delivered on.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Bound returns the conversation the connection is (or was last) bound to.
func (m *Manager) Bound() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bound
}

// Bind ensures a live connection bound to conversationID. A connection that
// is already Connected and bound to the same conversation is left alone.
// Any other existing connection is torn down first — its reader is detached
// before the close so a dying socket cannot deliver stale events.
func (m *Manager) Bind(ctx context.Context, conversationID int) error {
	m.mu.Lock()
	if m.connecting {
		m.mu.Unlock()
		return ErrBindInProgress
	}
	if m.state == StateConnected && m.bound == conversationID && m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	m.teardownLocked()
	m.connecting = true
	m.state = StateConnecting
	m.bound = conversationID
	m.mu.Unlock()

	ws, resp, err := m.dialer.DialContext(ctx, m.buildURL(conversationID), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	m.mu.Lock()
	m.connecting = false
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		observability.IncWSEvent("dial_error")
		return fmt.Errorf("dial conversation %d: %w", conversationID, err)
	}
	m.conn = ws
	m.state = StateConnected
	m.connectedAt = time.Now()
	gen := m.gen
	m.mu.Unlock()

	observability.IncWSActive()
	observability.IncWSEvent("connect")
	_ = observability.PublishEvent(ctx, "client_events.ws", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: observability.WSEventPayload{
			ConversationID: conversationID,
			Event:          "ws_connect",
		},
	}, nil)
	go m.readLoop(ws, conversationID, gen)

	m.emit(Event{Kind: EventConnected, Conversation: conversationID})
	return nil
}

// Send writes a payload on the live connection. It fails synchronously when
// the state is not Connected or the connection is bound elsewhere.
func (m *Manager) Send(conversationID int, payload models.SendPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected || m.conn == nil {
		return ErrNotConnected
	}
	if m.bound != conversationID {
		return ErrConversationMismatch
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

// MarkReconnecting records that a reconnect has been scheduled. Only valid
// from Disconnected; any other state means a newer bind already happened.
func (m *Manager) MarkReconnecting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDisconnected {
		m.state = StateReconnecting
	}
}

// Teardown detaches and closes any existing connection.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.state = StateDisconnected
}

// teardownLocked bumps the generation so the old reader exits silently, then
// closes the socket. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	if m.conn == nil {
		return
	}
	m.gen++
	m.conn.Close()
	m.conn = nil
	observability.DecWSActive()
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) readLoop(ws *websocket.Conn, conversationID int, gen uint64) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			m.finishRead(ws, conversationID, gen, err)
			return
		}
		if m.currentGen() != gen {
			// Detached while a frame was in flight; drop it.
			return
		}

		var msg models.Message
		if jsonErr := json.Unmarshal(data, &msg); jsonErr != nil || msg.ConversationID == 0 {
			log.Printf("dropping malformed frame on conversation %d: %v", conversationID, jsonErr)
			observability.IncWSEvent("malformed")
			continue
		}
		m.emit(Event{Kind: EventMessage, Conversation: conversationID, Message: &msg})
	}
}

// finishRead handles the read error that ends every reader: it classifies the
// close, updates state if this reader is still current, and notifies the
// consumer. Readers of torn-down connections exit without a word.
func (m *Manager) finishRead(ws *websocket.Conn, conversationID int, gen uint64, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected
	duration := time.Since(m.connectedAt)
	m.mu.Unlock()

	ws.Close()
	observability.DecWSActive()

	abnormal := !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if abnormal {
		log.Printf("websocket closed abnormally on conversation %d: %v", conversationID, err)
		observability.IncWSEvent("abnormal_close")
	} else {
		observability.IncWSEvent("close")
	}
	_ = observability.PublishEvent(context.Background(), "client_events.ws", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_disconnect",
		Payload: observability.WSEventPayload{
			ConversationID: conversationID,
			Event:          "ws_disconnect",
			DurationMS:     duration.Milliseconds(),
			Reason:         err.Error(),
		},
	}, nil)

	m.emit(Event{Kind: EventDisconnected, Conversation: conversationID, Abnormal: abnormal})
}

// emit never blocks; if the consumer has gone away events are dropped.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		log.Printf("dropping transport event %d for conversation %d: consumer not keeping up", ev.Kind, ev.Conversation)
	}
}
