package session

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/polis-labs/chronicler/internal/model"
)

// Store maps owner identity to the active session. Implementations must
// be safe for concurrent use: the timeout watcher reads entries from its
// own goroutine while the event handler mutates them.
type Store interface {
	// Get returns a copy of the owner's active session, if any
	Get(owner int64) (*model.Session, bool)
	// Put stores a copy of the session under its owner
	Put(s *model.Session)
	// Delete clears the owner's session
	Delete(owner int64)
	// Len returns the number of active sessions
	Len() int
}

// cacheStore implements Store on top of go-cache. Entries never expire
// on their own: session lifetime is governed by the timeout watcher,
// which must notify the owner before reclaiming a session.
type cacheStore struct {
	c *gocache.Cache
}

// NewStore creates an in-memory session store
func NewStore() Store {
	return &cacheStore{
		c: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (s *cacheStore) Get(owner int64) (*model.Session, bool) {
	v, ok := s.c.Get(ownerKey(owner))
	if !ok {
		return nil, false
	}
	// Hand out a copy so a reader never observes a half-applied mutation
	return v.(*model.Session).Clone(), true
}

func (s *cacheStore) Put(sess *model.Session) {
	s.c.Set(ownerKey(sess.Owner), sess.Clone(), gocache.NoExpiration)
}

func (s *cacheStore) Delete(owner int64) {
	s.c.Delete(ownerKey(owner))
}

func (s *cacheStore) Len() int {
	return s.c.ItemCount()
}

func ownerKey(owner int64) string {
	return strconv.FormatInt(owner, 10)
}
