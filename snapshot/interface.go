// Package snapshot persists kstack contents as point-in-time snapshots.
// Stacks register with a Manager; Save stages an encoded copy of every
// registered stack under a snapshot id, Persist commits the whole snapshot
// to the backend and Restore rebuilds a stack from the most recent
// persisted snapshot.
package snapshot

import (
	"cmp"
	"strconv"
)

// Backend stages per-stack payloads under a snapshot id and persists whole
// snapshots. Get returns the payload saved under name in the most recent
// persisted snapshot, nil if there is none.
type Backend interface {
	Save(id int64, name string, payload []byte) error
	//Persist saves the whole snapshot into storage
	Persist(id int64) error
	Get(name string) ([]byte, error)
	Close() error
}

// Codec turns a Snapshot into bytes and back.
type Codec[K cmp.Ordered, V any] interface {
	Encode(snap Snapshot[K, V]) ([]byte, error)
	Decode(payload []byte) (Snapshot[K, V], error)
}

func formatSnapshotId(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseSnapshotId(idStr string) int64 {
	id, _ := strconv.ParseInt(idStr, 10, 64)
	return id
}
