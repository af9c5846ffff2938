// Package taskname resolves ticket identifiers to human-readable task titles.
package taskname

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"branch-tracker/internal/errors"
	"branch-tracker/internal/logging"
	"branch-tracker/internal/monday"
)

// Lookup fetches a single item from the project-management service.
type Lookup interface {
	GetItem(ctx context.Context, id string) (*monday.Item, error)
}

// Cache stores resolved titles keyed by ticket identifier.
type Cache interface {
	Get(id string) (string, bool)
	Put(id, title string)
}

// MemoryCache is a process-lifetime Cache. Entries are never evicted.
type MemoryCache struct {
	mu     sync.RWMutex
	titles map[string]string
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{titles: make(map[string]string)}
}

func (c *MemoryCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	title, ok := c.titles[id]
	return title, ok
}

func (c *MemoryCache) Put(id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles[id] = title
}

// Len reports the number of cached titles.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.titles)
}

// Resolver answers "what is this ticket called". Successful lookups are cached;
// not-found and unreachable results are not, so a later call asks again.
type Resolver struct {
	lookup  Lookup
	cache   Cache
	timeout time.Duration
	group   singleflight.Group
}

// NewResolver builds a resolver. A nil lookup yields a resolver that always
// reports "no title", which is how a missing project-management token behaves.
func NewResolver(lookup Lookup, cache Cache, timeout time.Duration) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{lookup: lookup, cache: cache, timeout: timeout}
}

// Resolve returns the title for ticketID, or false when none could be found.
// Concurrent calls for the same identifier share one outbound request.
func (r *Resolver) Resolve(ctx context.Context, ticketID string) (string, bool) {
	if ticketID == "" {
		return "", false
	}
	if title, ok := r.cache.Get(ticketID); ok {
		return title, true
	}
	if r.lookup == nil {
		return "", false
	}

	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := r.group.DoChan(ticketID, func() (interface{}, error) {
		lookupCtx := context.WithoutCancel(ctx)
		if r.timeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(lookupCtx, r.timeout)
			defer cancel()
		}
		item, err := r.lookup.GetItem(lookupCtx, ticketID)
		if err != nil {
			return "", err
		}
		title := strings.TrimSpace(item.Name)
		if title == "" {
			return "", errors.NewNotFoundError("item name", ticketID)
		}
		r.cache.Put(ticketID, title)
		return title, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		logging.Debugf("task %s lookup abandoned: %v", ticketID, ctx.Err())
		return "", false
	}
	if err := res.Err; err != nil {
		if errors.IsErrorType(err, errors.ErrorTypeNotFound) {
			logging.Debugf("task %s not found", ticketID)
		} else {
			logging.Warnf("task %s lookup failed: %v", ticketID, err)
		}
		return "", false
	}
	return res.Val.(string), true
}
