package session

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryStore keeps entries in a map. It backs tests and the client's
// --ephemeral mode.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
	writes  int
	logger  *slog.Logger
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{entries: make(map[string]string), logger: logger}
}

func (m *MemoryStore) Read(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, hasUser := m.entries[KeyUser]
	token, hasToken := m.entries[KeyToken]
	return decode(m.logger, user, hasUser, token, hasToken), nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	user, token, err := encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[KeyUser] = user
	m.entries[KeyToken] = token
	m.writes++
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, KeyUser)
	delete(m.entries, KeyToken)
	m.writes++
	return nil
}

// SetRaw stores an entry verbatim, bypassing validation.
func (m *MemoryStore) SetRaw(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

// Raw returns an entry verbatim.
func (m *MemoryStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

// Writes counts successful Save and Clear calls.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
