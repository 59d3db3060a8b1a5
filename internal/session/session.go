package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"VoiceGate/internal/metrics"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyID is returned by stores for an empty session identifier.
var ErrEmptyID = errors.New("session id is empty")

// Turn represents a single message in a conversation
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists the ordered turns of every session.
// Implementations must be safe for concurrent use.
type Store interface {
	// Turns returns a copy of the session's turns in arrival order.
	// Unknown sessions have no turns.
	Turns(ctx context.Context, id string) ([]Turn, error)

	// Append adds a turn at the end of the session, creating it if needed.
	Append(ctx context.Context, id string, turn Turn) error

	Close() error
}

// Manager hands out session histories and serializes turns per session.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a manager on top of store
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// Get returns the history for id. Sessions are created lazily on first append.
func (m *Manager) Get(id string) *History {
	return &History{id: id, store: m.store}
}

// Lock blocks until the caller holds the session exclusively and returns
// the matching unlock function.
func (m *Manager) Lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
		metrics.SessionsCreated.Inc()
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}

// History is the append-only turn sequence of one session.
type History struct {
	id    string
	store Store
}

// ID returns the session identifier
func (h *History) ID() string {
	return h.id
}

// AddUser appends a user turn
func (h *History) AddUser(ctx context.Context, text string) error {
	return h.add(ctx, RoleUser, text)
}

// AddAssistant appends an assistant turn
func (h *History) AddAssistant(ctx context.Context, text string) error {
	return h.add(ctx, RoleAssistant, text)
}

// Turns returns the turns recorded so far
func (h *History) Turns(ctx context.Context) ([]Turn, error) {
	return h.store.Turns(ctx, h.id)
}

func (h *History) add(ctx context.Context, role, text string) error {
	return h.store.Append(ctx, h.id, Turn{
		Role:      role,
		Content:   text,
		Timestamp: time.Now(),
	})
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) Turns(_ context.Context, id string) ([]Turn, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]Turn, len(s.sessions[id]))
	copy(turns, s.sessions[id])
	return turns, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turn Turn) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = append(s.sessions[id], turn)
	return nil
}

// Count returns the number of sessions holding at least one turn
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	return nil
}
