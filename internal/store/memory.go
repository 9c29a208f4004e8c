package store

import (
	"slices"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// subscriberBuffer is the capacity of each subscription channel.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// A single RWMutex guards the item map, so each operation is one atomic
// critical section and concurrent updates or deletes of the same key cannot
// lose writes. Changes are published while the write lock is held, which
// keeps the order seen by subscribers identical to the order of mutations.
//
// Subscribers receive changes via buffered channels (buffer size 100). Sends
// are non-blocking; if a subscriber's buffer is full, the change is dropped
// for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[string]*structpb.Value
	subscribers map[chan Change]struct{}
	subMu       sync.RWMutex
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new, empty in-memory [Store].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       make(map[string]*structpb.Value),
		subscribers: make(map[chan Change]struct{}),
		now:         time.Now,
	}
}

// Create stores a copy of value at key, replacing any existing entry.
func (m *MemoryStore) Create(key string, value *structpb.Value) {
	stored := Clone(value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = stored
	m.notifySubscribers(OpCreated, key, stored)
}

// Read returns a copy of the value stored at key.
func (m *MemoryStore) Read(key string) (*structpb.Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	if !ok {
		return nil, false
	}
	return Clone(v), true
}

// Update merges patch into the value stored at key. See [Store.Update].
func (m *MemoryStore) Update(key string, patch *structpb.Value) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[key]
	if !ok {
		return false
	}

	dst := existing.GetStructValue()
	src := patch.GetStructValue()
	if dst != nil && src != nil {
		if dst.Fields == nil {
			dst.Fields = make(map[string]*structpb.Value, len(src.Fields))
		}
		for k, v := range src.Fields {
			dst.Fields[k] = Clone(v)
		}
	} else {
		existing = Clone(patch)
		m.items[key] = existing
	}

	m.notifySubscribers(OpUpdated, key, existing)
	return true
}

// Delete removes key and reports whether it was present.
func (m *MemoryStore) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key]; !ok {
		return false
	}
	delete(m.items, key)

	m.notifySubscribers(OpDeleted, key, nil)
	return true
}

// Clear removes every entry without publishing changes.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*structpb.Value)
}

// Keys returns a sorted snapshot of the stored keys.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Subscribe creates a new subscription and returns a channel for receiving changes.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Change {
	ch := make(chan Change, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Change) {
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

// notifySubscribers sends a change to all active subscribers. Each
// subscriber gets its own copy of the value. Must be called with m.mu held.
func (m *MemoryStore) notifySubscribers(op Op, key string, value *structpb.Value) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	if len(m.subscribers) == 0 {
		return
	}

	at := m.now()
	for ch := range m.subscribers {
		change := Change{Op: op, Key: key, At: at}
		if value != nil {
			change.Value = Clone(value)
		}

		select {
		case ch <- change:
		default:
			// subscriber is slow, drop the change
		}
	}
}
