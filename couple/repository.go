package couple

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
)

// Repository is the source of truth for couples.
type Repository interface {
	// FindByUserID returns the couple of the user.
	// It returns an error wrapping fetchcache.ErrNotFound when the user has none.
	FindByUserID(ctx context.Context, userID UserID) (*Couple, error)
}

// MemoryRepository is an in-memory Repository.
// The zero value is ready to use.
type MemoryRepository struct {
	// Latency delays every lookup, honoring the context.
	Latency time.Duration

	mu      sync.RWMutex
	couples map[UserID]*Couple
	calls   atomic.Int64
}

var _ Repository = (*MemoryRepository)(nil)

// FindByUserID returns a copy of the stored couple.
func (r *MemoryRepository) FindByUserID(ctx context.Context, userID UserID) (*Couple, error) {
	r.calls.Add(1)
	if r.Latency > 0 {
		timer := time.NewTimer(r.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.couples[userID]
	if !ok {
		return nil, fmt.Errorf("couple of user %q: %w", userID, fetchcache.ErrNotFound)
	}
	return c.Clone(), nil
}

// Save stores a copy of c under its UserID.
func (r *MemoryRepository) Save(c *Couple) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.couples == nil {
		r.couples = map[UserID]*Couple{}
	}
	r.couples[c.UserID] = c.Clone()
}

// Delete removes the couple of the user.
func (r *MemoryRepository) Delete(userID UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.couples, userID)
}

// Calls returns how many lookups were made.
func (r *MemoryRepository) Calls() int64 {
	return r.calls.Load()
}
