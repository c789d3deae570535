package backend

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("backend closed")

// Local is an in-memory Backend. It is useful for tests and development
// situations where the data is not expected to be durable.
//
// Keys are kept in insertion order: AllKeys called twice with no
// intervening writes returns identical sequences.
type Local struct {
	records map[string]Record
	order   []string
	mu      sync.RWMutex
	closed  bool
}

var _ Backend = (*Local)(nil)

// NewLocal creates an empty in-memory backend.
func NewLocal() *Local {
	return &Local{
		records: make(map[string]Record, 16),
		order:   make([]string, 0, 16),
	}
}

func (l *Local) SetItem(key, typ, value string, encrypted bool) bool {
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	if _, exists := l.records[key]; !exists {
		l.order = append(l.order, key)
	}
	l.records[key] = Record{Value: value, Type: typ, Encrypted: encrypted}
	return true
}

func (l *Local) GetItem(key string) (Record, bool) {
	if key == "" {
		return Record{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return Record{}, false
	}

	rec, ok := l.records[key]
	return rec, ok
}

func (l *Local) RemoveItem(key string) bool {
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	if _, ok := l.records[key]; !ok {
		// Nothing to remove; the delete itself still succeeded.
		return true
	}
	delete(l.records, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

func (l *Local) Clear() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	l.records = make(map[string]Record, 16)
	l.order = l.order[:0]
	return true
}

func (l *Local) AllKeys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, len(l.order))
	copy(keys, l.order)
	return keys
}

func (l *Local) HasKey(key string) bool {
	if key == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return false
	}

	_, ok := l.records[key]
	return ok
}

// Len returns the number of stored records.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Close releases the store. Operations after Close fail with their
// documented failure value.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.closed = true
	l.records = nil
	l.order = nil
	return nil
}
