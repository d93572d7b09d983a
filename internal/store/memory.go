// internal/store/memory.go
//
// In-memory session store for Rock-Paper-Scissors games.
// Each session owns exactly one current game.State which is replaced
// wholesale after every round or reset.
//
// Characteristics:
//   - Sessions keyed by a random URL-safe ID.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Update runs the caller's transition under the write lock, so two rounds
//     for the same session can never interleave or overwrite each other.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/rps/internal/game"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("session not found")

// Session pairs a session ID with its current game state.
type Session struct {
	ID        string
	State     game.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store defines the persistence interface for game sessions.
type Store interface {
	// Create starts a new session holding a fresh state.
	Create(ctx context.Context) (Session, error)

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (Session, error)

	// Update replaces the session's state with fn(current).
	// fn runs while no other Update is in progress.
	// If fn returns an error the stored state is left unchanged.
	Update(ctx context.Context, id string, fn func(game.State) (game.State, error)) (Session, error)

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// Len reports the number of live sessions.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex        // guards sessions
	sessions map[string]*Session // keyed by Session.ID
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session), now: time.Now}
}

func (m *memory) Create(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	id := genID()
	for m.sessions[id] != nil {
		id = genID()
	}
	s := &Session{ID: id, State: game.Reset(), CreatedAt: now, UpdatedAt: now}
	m.sessions[id] = s
	return *s, nil
}

func (m *memory) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return *s, nil
	}
	return Session{}, ErrNotFound
}

func (m *memory) Update(ctx context.Context, id string, fn func(game.State) (game.State, error)) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	next, err := fn(s.State)
	if err != nil {
		return *s, err
	}
	s.State = next
	s.UpdatedAt = m.now().UTC()
	return *s, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
