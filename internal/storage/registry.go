package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/crowd-relay/internal/crowd"
)

const defaultShards = 32

// Options configures a Registry. Zero fields take defaults.
type Options struct {
	Shards        int
	CommandBuffer int
	UpdateBuffer  int

	// NewID and Now are replaceable for tests.
	NewID func() crowd.ID
	Now   func() time.Time
}

type shard struct {
	mu       sync.RWMutex
	sessions map[crowd.ID]*crowd.Session
}

// Registry is the in-memory directory of live crowd sessions. Sessions are
// spread over independently locked shards so unrelated sessions never
// contend.
type Registry struct {
	shards []*shard

	commandBuffer int
	updateBuffer  int
	newID         func() crowd.ID
	now           func() time.Time
}

// SessionDirectory defines the registry operations connection handlers use
type SessionDirectory interface {
	Create(name string) (*crowd.Session, *crowd.Endpoints)
	Lookup(id crowd.ID) (*crowd.Session, error)
	Remove(id crowd.ID)
	List() []crowd.Summary
}

// NewRegistry creates an empty registry
func NewRegistry(opts Options) *Registry {
	if opts.Shards < 1 {
		opts.Shards = defaultShards
	}
	if opts.CommandBuffer < 1 {
		opts.CommandBuffer = 50
	}
	if opts.UpdateBuffer < 1 {
		opts.UpdateBuffer = 50
	}
	if opts.NewID == nil {
		opts.NewID = crowd.NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Registry{
		shards:        make([]*shard, opts.Shards),
		commandBuffer: opts.CommandBuffer,
		updateBuffer:  opts.UpdateBuffer,
		newID:         opts.NewID,
		now:           opts.Now,
	}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[crowd.ID]*crowd.Session)}
	}
	return r
}

func (r *Registry) shardFor(id crowd.ID) *shard {
	return r.shards[xxhash.Sum64(id[:])%uint64(len(r.shards))]
}

// Create registers a new session under a fresh ID. IDs that are already
// taken are silently regenerated.
func (r *Registry) Create(name string) (*crowd.Session, *crowd.Endpoints) {
	for {
		id := r.newID()
		sh := r.shardFor(id)

		sh.mu.Lock()
		if _, exists := sh.sessions[id]; exists {
			sh.mu.Unlock()
			continue
		}
		session, ends := crowd.NewSession(id, name, r.now(), r.commandBuffer, r.updateBuffer)
		sh.sessions[id] = session
		sh.mu.Unlock()

		return session, ends
	}
}

// Lookup retrieves a live session by ID
func (r *Registry) Lookup(id crowd.ID) (*crowd.Session, error) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	session, exists := sh.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove deletes a session. Removing an absent session is a no-op.
func (r *Registry) Remove(id crowd.ID) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	session, exists := sh.sessions[id]
	delete(sh.sessions, id)
	sh.mu.Unlock()

	if exists {
		session.Release()
	}
}

// List summarises every live session, oldest first
func (r *Registry) List() []crowd.Summary {
	var out []crowd.Summary
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, session := range sh.sessions {
			out = append(out, session.Summary())
		}
		sh.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Errors
var (
	ErrSessionNotFound = &StorageError{Message: "session not found"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
