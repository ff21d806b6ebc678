package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chat-client/internal/models"
)

// Lister loads conversation summaries from the backend.
type Lister interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
}

// ConversationStore owns the ordered conversation list. It is the only place
// the list is mutated; the list is kept sorted descending by last activity,
// ties preserving prior relative order.
type ConversationStore struct {
	mu            sync.RWMutex
	lister        Lister
	selfID        int
	conversations []models.Conversation
	loaded        bool
	loadErr       error
}

// New builds an empty store. selfID is the local user; messages they send
// never count as unread.
func New(lister Lister, selfID int) *ConversationStore {
	return &ConversationStore{lister: lister, selfID: selfID}
}

// Load fetches summaries and replaces the in-memory list. On failure the
// previous list is kept and the error is retained for snapshots, so a failed
// background refresh never blanks a working screen.
func (s *ConversationStore) Load(ctx context.Context) ([]models.Conversation, error) {
	conversations, err := s.lister.ListConversations(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadErr = fmt.Errorf("load conversations: %w", err)
		return nil, s.loadErr
	}
	s.conversations = conversations
	s.sortLocked()
	s.loaded = true
	s.loadErr = nil
	return s.copyLocked(), nil
}

// Touch records that a message belonging to conversationID was observed,
// whatever the path it arrived by. The last-message summary only moves
// forward in time, which makes Touch idempotent under replays and safe under
// out-of-order delivery. Returns false when the conversation is unknown; the
// caller is expected to trigger a full reload.
func (s *ConversationStore) Touch(conversationID int, msg models.Message, countsAsRead bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(conversationID)
	if idx < 0 {
		return false
	}
	conv := &s.conversations[idx]

	read := countsAsRead || msg.SenderID == s.selfID
	if conv.LastMessageAt != nil && !msg.CreatedAt.After(*conv.LastMessageAt) {
		// Replay or out-of-order delivery: the summary stays, but a fresh
		// unread message still counts.
		if !read {
			conv.UnreadCount++
		}
		return true
	}

	last := msg
	conv.LastMessage = &last
	at := msg.CreatedAt
	conv.LastMessageAt = &at
	if read {
		conv.UnreadCount = 0
	} else {
		conv.UnreadCount++
	}

	s.sortLocked()
	return true
}

// MarkRead zeroes the unread count; called when a conversation becomes active.
func (s *ConversationStore) MarkRead(conversationID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(conversationID); idx >= 0 {
		s.conversations[idx].UnreadCount = 0
	}
}

// Get returns the conversation with the given id.
func (s *ConversationStore) Get(conversationID int) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(conversationID); idx >= 0 {
		return s.conversations[idx], true
	}
	return models.Conversation{}, false
}

// Snapshot returns a copy of the ordered list plus the most recent load error,
// if the last load failed.
func (s *ConversationStore) Snapshot() ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked(), s.loadErr
}

func (s *ConversationStore) indexLocked(conversationID int) int {
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			return i
		}
	}
	return -1
}

func (s *ConversationStore) copyLocked() []models.Conversation {
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// sortLocked orders descending by last activity. The sort is stable so ties
// keep their prior relative order and the list does not jitter.
func (s *ConversationStore) sortLocked() {
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].ActivityAt().After(s.conversations[j].ActivityAt())
	})
}
