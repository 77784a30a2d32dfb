package snapshot

import (
	"bytes"
	"cmp"
	"encoding/gob"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/RuiFG/kstack"
)

// Entry is one pushed (key, value) occurrence.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// Snapshot is the persisted form of one stack: its live entries in push
// order, oldest first, plus audit metadata. Replaying the entries through
// Push rebuilds all three indexes.
type Snapshot[K cmp.Ordered, V any] struct {
	ID      string
	TakenAt time.Time
	Entries []Entry[K, V]
}

// Capture records the stack's live entries and stamps the snapshot with a
// fresh id.
func Capture[K cmp.Ordered, V any](s *kstack.KeyedStack[K, V]) Snapshot[K, V] {
	snap := Snapshot[K, V]{
		ID:      uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Entries: make([]Entry[K, V], 0, s.Size()),
	}
	s.Range(func(key K, value V) bool {
		snap.Entries = append(snap.Entries, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return snap
}

// Rebuild replays the snapshot into a fresh stack.
func Rebuild[K cmp.Ordered, V any](snap Snapshot[K, V]) (*kstack.KeyedStack[K, V], error) {
	s := kstack.New[K, V]()
	for _, e := range snap.Entries {
		if err := s.Push(e.Key, e.Value); err != nil {
			return nil, errors.WithMessagef(err, "failed to replay snapshot %s", snap.ID)
		}
	}
	return s, nil
}

// GobCodec encodes snapshots with encoding/gob, so keys and values should
// expose fields.
type GobCodec[K cmp.Ordered, V any] struct{}

func (GobCodec[K, V]) Encode(snap Snapshot[K, V]) ([]byte, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(&snap); err != nil {
		return nil, errors.WithMessage(err, "failed to encode snapshot")
	}
	return buffer.Bytes(), nil
}

func (GobCodec[K, V]) Decode(payload []byte) (Snapshot[K, V], error) {
	var snap Snapshot[K, V]
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snap); err != nil {
		return snap, errors.WithMessage(err, "failed to decode gob bytes")
	}
	return snap, nil
}

// MsgpackCodec encodes snapshots with msgpack, a denser format than gob for
// snapshots that cross process or machine boundaries.
type MsgpackCodec[K cmp.Ordered, V any] struct{}

func (MsgpackCodec[K, V]) Encode(snap Snapshot[K, V]) ([]byte, error) {
	payload, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to encode snapshot")
	}
	return payload, nil
}

func (MsgpackCodec[K, V]) Decode(payload []byte) (Snapshot[K, V], error) {
	var snap Snapshot[K, V]
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return snap, errors.WithMessage(err, "failed to decode msgpack bytes")
	}
	return snap, nil
}
