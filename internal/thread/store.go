package thread

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/models"
)

// reconcileWindow bounds the created_at distance inside which a confirmed
// message is merged with a pending entry of the same sender and content.
// A user sending two identical messages within the window can mis-merge;
// the backend does not disambiguate this case either.
const reconcileWindow = 5 * time.Second

// Outcome classifies what Ingest did with an inbound confirmed message.
type Outcome int

const (
	// Inserted: a genuinely new message was added to the thread.
	Inserted Outcome = iota
	// Reconciled: the message replaced its pending optimistic counterpart.
	Reconciled
	// Duplicate: the server id was already present; the delivery was dropped.
	Duplicate
	// OtherConversation: the message does not belong to the active
	// conversation and was not inserted.
	OtherConversation
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Reconciled:
		return "reconciled"
	case Duplicate:
		return "duplicate"
	case OtherConversation:
		return "routed"
	default:
		return "unknown"
	}
}

// Store owns the message list of the single active conversation. Entries of
// any other conversation never enter the store; that filter is the defense
// against cross-conversation leakage.
type Store struct {
	mu      sync.RWMutex
	active  int
	gen     uint64
	entries []Entry
	loadErr error
}

func NewStore() *Store {
	return &Store{}
}

// Open makes conversationID the active conversation and returns the new
// generation. Confirmed entries are discarded (they will be reloaded);
// pending entries are retained only when they belong to the reopened
// conversation, which covers reopening while a send is still in flight.
func (s *Store) Open(conversationID int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.active = conversationID
	s.loadErr = nil

	retained := s.entries[:0]
	for _, e := range s.entries {
		if p, ok := e.(Pending); ok && p.ConversationID == conversationID {
			retained = append(retained, p)
		}
	}
	s.entries = retained
	return s.gen
}

// Active returns the id of the active conversation, zero when none.
func (s *Store) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Generation returns the current generation counter.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// ReplaceConfirmed installs a freshly loaded history. The result is applied
// only when conversationID and gen still match the store, so a slow reload
// for a previously active conversation is silently discarded. Retained
// pending entries are merged through the reconciler. Reports whether the
// result was applied.
func (s *Store) ReplaceConfirmed(conversationID int, gen uint64, msgs []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID != s.active || gen != s.gen {
		return false
	}

	merged := make([]Entry, 0, len(s.entries)+len(msgs))
	seen := make(map[int]struct{}, len(msgs))
	for _, m := range msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, Confirmed{Message: m})
	}

	for _, e := range s.entries {
		p, ok := e.(Pending)
		if !ok {
			continue
		}
		confirmed := false
		for _, m := range msgs {
			if matchesPending(p, m) {
				confirmed = true
				break
			}
		}
		if !confirmed {
			merged = append(merged, p)
		}
	}

	s.entries = merged
	s.loadErr = nil
	s.sortLocked()
	return true
}

// SetLoadError records a failed history load, generation-guarded like
// ReplaceConfirmed so a stale failure cannot shadow a newer thread.
func (s *Store) SetLoadError(conversationID int, gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID != s.active || gen != s.gen {
		return false
	}
	s.loadErr = err
	return true
}

// AppendPending creates and inserts an optimistic entry at the tail.
// Returns false when no conversation is active.
func (s *Store) AppendPending(senderID int, content string, attachments []string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == 0 {
		return Pending{}, false
	}
	p := Pending{
		LocalID:        "pending_" + uuid.NewString(),
		ConversationID: s.active,
		SenderID:       senderID,
		Content:        content,
		Attachments:    attachments,
		CreatedAt:      time.Now().UTC(),
	}
	s.entries = append(s.entries, p)
	return p, true
}

// RemovePending drops an optimistic entry, used on send failure.
func (s *Store) RemovePending(localID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if p, ok := e.(Pending); ok && p.LocalID == localID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Ingest applies a confirmed message arriving from the live connection.
// Messages of other conversations are rejected here and only ever touch the
// conversation list, never this thread.
func (s *Store) Ingest(msg models.Message) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == 0 || msg.ConversationID != s.active {
		return OtherConversation
	}

	for _, e := range s.entries {
		if c, ok := e.(Confirmed); ok && c.Message.ID == msg.ID {
			return Duplicate
		}
	}

	for i, e := range s.entries {
		p, ok := e.(Pending)
		if !ok {
			continue
		}
		if matchesPending(p, msg) {
			// Replace in place to keep the entry's position.
			s.entries[i] = Confirmed{Message: msg}
			return Reconciled
		}
	}

	s.entries = append(s.entries, Confirmed{Message: msg})
	s.sortLocked()
	return Inserted
}

// Snapshot returns the render-ready entries (ascending created_at, arrival
// order on ties) and the load error of the active thread, if any.
func (s *Store) Snapshot() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, s.loadErr
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].SentAt().Before(s.entries[j].SentAt())
	})
}

// matchesPending decides whether a confirmed message is the echo of a pending
// entry: an exact id match first (for backends that echo client ids back),
// then the sender + content match inside the reconcile window.
func matchesPending(p Pending, msg models.Message) bool {
	if p.LocalID == strconv.Itoa(msg.ID) {
		return true
	}
	if p.SenderID != msg.SenderID || p.Content != msg.Content {
		return false
	}
	delta := msg.CreatedAt.Sub(p.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < reconcileWindow
}
