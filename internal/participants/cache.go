package participants

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/rest"
)

// Resolver fetches a single user profile from the marketplace API.
type Resolver interface {
	GetUser(ctx context.Context, userID int) (models.Participant, error)
}

// Cache memoizes participant profiles for the life of the session. Unknown
// users resolve to a placeholder that is cached like any other entry, so a
// deleted account costs one lookup instead of one per render.
type Cache struct {
	mu       sync.RWMutex
	resolver Resolver
	users    map[int]models.Participant
}

func NewCache(resolver Resolver) *Cache {
	return &Cache{
		resolver: resolver,
		users:    map[int]models.Participant{},
	}
}

// Resolve returns the profile for userID, fetching it on first use. A lookup
// that fails with not-found caches a placeholder; any other failure is
// returned without caching so a transient error can be retried.
func (c *Cache) Resolve(ctx context.Context, userID int) (models.Participant, error) {
	c.mu.RLock()
	p, ok := c.users[userID]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := c.resolver.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, rest.ErrNotFound) {
			p = placeholder(userID)
		} else {
			return models.Participant{}, fmt.Errorf("resolve user %d: %w", userID, err)
		}
	}

	c.mu.Lock()
	c.users[userID] = p
	c.mu.Unlock()
	return p, nil
}

// Preload resolves every id in the background of a conversation list load.
// Failures are logged and skipped; Resolve will retry them on demand.
func (c *Cache) Preload(ctx context.Context, userIDs []int) {
	for _, id := range userIDs {
		if _, err := c.Resolve(ctx, id); err != nil {
			log.Printf("preload user %d: %v", id, err)
		}
	}
}

// Peek returns the cached profile without fetching.
func (c *Cache) Peek(userID int) (models.Participant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.users[userID]
	return p, ok
}

func placeholder(userID int) models.Participant {
	return models.Participant{
		ID:          userID,
		DisplayName: fmt.Sprintf("User %d", userID),
	}
}
