package snapshot

import (
	"cmp"
	"sync"

	"github.com/pkg/errors"

	"github.com/RuiFG/kstack"
)

// ErrNoSnapshot is returned by Restore when the backend holds no persisted
// snapshot for the requested stack.
var ErrNoSnapshot = errors.New("snapshot: no persisted snapshot")

// Manager binds named stacks to a Backend and a Codec.
type Manager[K cmp.Ordered, V any] struct {
	mutex   *sync.Mutex
	mm      map[string]*kstack.KeyedStack[K, V]
	codec   Codec[K, V]
	backend Backend
}

func NewManager[K cmp.Ordered, V any](backend Backend, codec Codec[K, V]) *Manager[K, V] {
	return &Manager[K, V]{
		mutex:   &sync.Mutex{},
		mm:      map[string]*kstack.KeyedStack[K, V]{},
		codec:   codec,
		backend: backend,
	}
}

// Register adds a stack under name; a later Save includes it.
func (m *Manager[K, V]) Register(name string, s *kstack.KeyedStack[K, V]) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.mm[name] = s
}

// Save stages an encoded snapshot of every registered stack under id.
func (m *Manager[K, V]) Save(id int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for name, s := range m.mm {
		payload, err := m.codec.Encode(Capture(s))
		if err != nil {
			return errors.WithMessagef(err, "failed to encode stack %s", name)
		}
		if err := m.backend.Save(id, name, payload); err != nil {
			return errors.WithMessagef(err, "failed to save stack %s", name)
		}
	}
	return nil
}

// Persist commits the staged snapshot id to the backend.
func (m *Manager[K, V]) Persist(id int64) error {
	return m.backend.Persist(id)
}

// Restore rebuilds the named stack from the most recent persisted snapshot.
func (m *Manager[K, V]) Restore(name string) (*kstack.KeyedStack[K, V], error) {
	payload, err := m.backend.Get(name)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get stack %s", name)
	}
	if payload == nil {
		return nil, errors.WithMessagef(ErrNoSnapshot, "stack %s", name)
	}
	snap, err := m.codec.Decode(payload)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to decode stack %s", name)
	}
	return Rebuild(snap)
}
