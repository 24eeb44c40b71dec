package store

import (
	"maps"
	"sort"
	"sync"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	states      map[string]EntityState
	sources     map[string]SourceStatus
	subscribers map[chan EntityState]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:      make(map[string]EntityState),
		sources:     make(map[string]SourceStatus),
		subscribers: make(map[chan EntityState]struct{}),
	}
}

// Update stores an [EntityState] keyed by its ID and notifies all
// subscribers (unless their buffer is full).
func (m *MemoryStore) Update(state EntityState) {
	state.Attributes = maps.Clone(state.Attributes)

	m.mu.Lock()
	m.states[state.ID] = state
	m.mu.Unlock()

	m.notifySubscribers(state)
}

// Get returns a copy of the state stored under id.
func (m *MemoryStore) Get(id string) (EntityState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[id]
	if ok {
		state.Attributes = maps.Clone(state.Attributes)
	}
	return state, ok
}

// GetAll returns a copy of all stored states ordered by ID.
func (m *MemoryStore) GetAll() []EntityState {
	m.mu.RLock()
	results := make([]EntityState, 0, len(m.states))
	for _, state := range m.states {
		state.Attributes = maps.Clone(state.Attributes)
		results = append(results, state)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// UpdateSource stores a source's status. Subscribers are not notified.
func (m *MemoryStore) UpdateSource(status SourceStatus) {
	m.mu.Lock()
	m.sources[status.Name] = status
	m.mu.Unlock()
}

// GetSources returns a copy of all source statuses ordered by Name.
func (m *MemoryStore) GetSources() []SourceStatus {
	m.mu.RLock()
	results := make([]SourceStatus, 0, len(m.sources))
	for _, status := range m.sources {
		results = append(results, status)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan EntityState {
	ch := make(chan EntityState, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan EntityState) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(state EntityState) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- state:
		default:
			// subscriber is slow, drop the message
		}
	}
}
