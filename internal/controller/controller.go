package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/conn"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/participants"
	"chat-client/internal/rest"
	"chat-client/internal/store"
	"chat-client/internal/telemetry"
	"chat-client/internal/thread"
)

// ErrNoActiveConversation is returned by Send when no conversation is open.
var ErrNoActiveConversation = errors.New("no active conversation")

// Controller coordinates the REST client, conversation and thread stores,
// participant cache and websocket manager into one session. Every public
// method is safe for concurrent use; async completions (thread loads,
// reconnect timers) are validated against the thread generation or the
// active conversation before they touch state, so results of an operation
// that was superseded are discarded.
type Controller struct {
	api            rest.Service
	convs          *store.ConversationStore
	thread         *thread.Store
	manager        *conn.Manager
	people         *participants.Cache
	audit          *telemetry.AuditEmitter
	self           models.Account
	sessionID      string
	reconnectDelay time.Duration
}

func New(api rest.Service, convs *store.ConversationStore, th *thread.Store, manager *conn.Manager, people *participants.Cache, audit *telemetry.AuditEmitter, self models.Account, reconnectDelay time.Duration) *Controller {
	return &Controller{
		api:            api,
		convs:          convs,
		thread:         th,
		manager:        manager,
		people:         people,
		audit:          audit,
		self:           self,
		sessionID:      uuid.NewString(),
		reconnectDelay: reconnectDelay,
	}
}

// CurrentUser returns the authenticated account the session runs as.
func (c *Controller) CurrentUser() models.Account {
	return c.self
}

// SessionID identifies this client session in telemetry.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// ConnectionState reports the websocket lifecycle state.
func (c *Controller) ConnectionState() string {
	return c.manager.State().String()
}

// Bootstrap loads the conversation list and warms the participant cache.
// Called once at startup, before the event loop begins delivering frames.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.audit.Emit(ctx, "info", "session started", c.sessionID, &c.self.ID)

	convs, err := c.convs.Load(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap conversations: %w", err)
	}
	go c.people.Preload(context.Background(), counterparts(convs, c.self.ID))
	return nil
}

// Refresh re-fetches the conversation list from the server. The open thread
// and the live connection are untouched unless the active conversation no
// longer exists, in which case the most recent one is opened instead.
func (c *Controller) Refresh(ctx context.Context) error {
	convs, err := c.convs.Load(ctx)
	if err != nil {
		return fmt.Errorf("refresh conversations: %w", err)
	}
	go c.people.Preload(context.Background(), counterparts(convs, c.self.ID))

	if active := c.thread.Active(); active != 0 {
		if _, ok := c.convs.Get(active); !ok {
			if len(convs) == 0 {
				c.thread.Open(0)
				c.manager.Teardown()
				return nil
			}
			return c.Open(ctx, convs[0].ID)
		}
	}
	return nil
}

// Open makes conversationID the active conversation: the thread store is
// reset under a new generation, history is fetched in the background, and
// the websocket is rebound. Opening the already-active conversation still
// re-fetches history but leaves a healthy connection alone.
func (c *Controller) Open(ctx context.Context, conversationID int) error {
	if _, ok := c.convs.Get(conversationID); !ok {
		return fmt.Errorf("open conversation %d: %w", conversationID, rest.ErrNotFound)
	}

	gen := c.thread.Open(conversationID)
	c.convs.MarkRead(conversationID)

	go c.loadThread(conversationID, gen)
	go c.bind(conversationID, true)
	return nil
}

// loadThread fetches history and applies it only if the thread is still on
// the same conversation and generation. A result that arrives after another
// Open is dropped on the floor.
func (c *Controller) loadThread(conversationID int, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	msgs, err := c.api.GetMessages(ctx, conversationID)
	if err != nil {
		if !c.thread.SetLoadError(conversationID, gen, err) {
			observability.IncStaleResult("thread_load")
		}
		log.Printf("load thread %d: %v", conversationID, err)
		return
	}
	if !c.thread.ReplaceConfirmed(conversationID, gen, msgs) {
		observability.IncStaleResult("thread_load")
	}
}

// bind dials the websocket for conversationID. retry controls what a dial
// failure does: an Open gets the one scheduled reconnect, the reconnect
// attempt itself does not re-arm on failure. The user re-triggers by
// reselecting the conversation.
func (c *Controller) bind(conversationID int, retry bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := c.manager.Bind(ctx, conversationID)
	if err == nil {
		return
	}
	if errors.Is(err, conn.ErrBindInProgress) {
		// Another dial is in flight; try again once it has settled, but
		// only if this conversation is still the active one.
		time.AfterFunc(c.reconnectDelay, func() {
			c.reconnectDue(conversationID)
		})
		return
	}
	log.Printf("bind conversation %d: %v", conversationID, err)
	if retry {
		c.scheduleReconnect(conversationID)
	}
}

// Send appends an optimistic pending entry and pushes the payload on the
// live connection. A synchronous transport failure rolls the entry back;
// nothing is queued for retry.
func (c *Controller) Send(ctx context.Context, content string, attachments []string) (thread.Pending, error) {
	pending, ok := c.thread.AppendPending(c.self.ID, content, attachments)
	if !ok {
		return thread.Pending{}, ErrNoActiveConversation
	}

	payload := models.SendPayload{Content: content, Attachments: pending.Attachments}
	if err := c.manager.Send(pending.ConversationID, payload); err != nil {
		c.thread.RemovePending(pending.LocalID)
		observability.IncSendFailure()
		c.audit.Emit(ctx, "warn", fmt.Sprintf("send failed on conversation %d: %v", pending.ConversationID, err), c.sessionID, &c.self.ID)
		return thread.Pending{}, fmt.Errorf("send on conversation %d: %w", pending.ConversationID, err)
	}
	return pending, nil
}

// StartConversation creates (or returns) the conversation with another
// participant about a project, refreshes the list, and opens it.
func (c *Controller) StartConversation(ctx context.Context, req models.StartConversationRequest) (models.Conversation, error) {
	conv, err := c.api.StartConversation(ctx, req)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("start conversation: %w", err)
	}
	if _, err := c.convs.Load(ctx); err != nil {
		log.Printf("reload conversations after start: %v", err)
	}
	if err := c.Open(ctx, conv.ID); err != nil {
		return conv, err
	}
	return conv, nil
}

// Conversations snapshots the conversation list, most recent activity first.
func (c *Controller) Conversations() ([]models.Conversation, error) {
	return c.convs.Snapshot()
}

// Thread snapshots the open thread and returns the active conversation id,
// zero when nothing is open.
func (c *Controller) Thread() ([]thread.Entry, int, error) {
	entries, err := c.thread.Snapshot()
	return entries, c.thread.Active(), err
}

// Participant returns the cached profile for a user, fetching on miss.
func (c *Controller) Participant(ctx context.Context, userID int) (models.Participant, error) {
	return c.people.Resolve(ctx, userID)
}

// Close tears down the live connection. Store state survives so snapshots
// taken after Close still render.
func (c *Controller) Close() {
	c.manager.Teardown()
}

// Run consumes transport events until ctx is cancelled. It is the only
// reader of the manager's event channel.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.manager.Teardown()
			return
		case ev := <-c.manager.Events():
			switch ev.Kind {
			case conn.EventConnected:
				log.Printf("connected to conversation %d", ev.Conversation)
			case conn.EventMessage:
				c.handleInbound(*ev.Message)
			case conn.EventDisconnected:
				if ev.Abnormal {
					c.scheduleReconnect(ev.Conversation)
				}
			}
		}
	}
}

// handleInbound routes one inbound frame. The thread store decides whether
// it belongs to the open conversation; the conversation list is touched
// either way so summaries and unread counts stay current. A frame for a
// conversation the list has never seen triggers a background reload.
func (c *Controller) handleInbound(msg models.Message) {
	outcome := c.thread.Ingest(msg)
	observability.IncInbound(outcome.String())

	countsAsRead := outcome != thread.OtherConversation
	if !c.convs.Touch(msg.ConversationID, msg, countsAsRead) {
		log.Printf("message for unknown conversation %d, reloading list", msg.ConversationID)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if _, err := c.convs.Load(ctx); err != nil {
				log.Printf("reload conversations: %v", err)
			}
		}()
	}
}

// scheduleReconnect arms a single fixed-delay reconnect for conversationID.
// The decision whether to actually dial is deferred to the timer firing:
// if the user has opened a different conversation by then, the attempt is
// abandoned rather than resurrecting a stale binding.
func (c *Controller) scheduleReconnect(conversationID int) {
	c.manager.MarkReconnecting()
	observability.IncWSEvent("reconnect_scheduled")
	c.audit.Emit(context.Background(), "warn", fmt.Sprintf("reconnecting to conversation %d", conversationID), c.sessionID, &c.self.ID)
	_ = observability.PublishEvent(context.Background(), "client_events.ws", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_reconnect",
		Payload: observability.WSEventPayload{
			ConversationID: conversationID,
			Event:          "ws_reconnect",
			UserID:         c.self.ID,
		},
	}, observability.BuildHeaders(c.sessionID, ""))

	time.AfterFunc(c.reconnectDelay, func() {
		c.reconnectDue(conversationID)
	})
}

func (c *Controller) reconnectDue(conversationID int) {
	if c.thread.Active() != conversationID {
		observability.IncStaleResult("reconnect")
		return
	}
	c.bind(conversationID, false)
}

func counterparts(convs []models.Conversation, selfID int) []int {
	seen := map[int]struct{}{}
	ids := make([]int, 0, len(convs))
	for _, conv := range convs {
		id := conv.Counterpart(selfID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
