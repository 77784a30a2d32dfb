package snapshot

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/RuiFG/kstack/log"
)

// bolt persists snapshots into a single bbolt file, one bucket per snapshot
// id. Unlike the nutsdb backend it keeps nothing staged across reopens; Get
// reads straight from the latest persisted bucket.
type bolt struct {
	logger    log.Logger
	db        *bbolt.DB
	staged    map[int64]map[string][]byte
	snapshots []int64
}

func NewBoltBackend(logger log.Logger, path string) (Backend, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to open bolt file %s", path)
	}
	b := &bolt{
		logger: logger.Named("bolt"),
		db:     db,
		staged: map[int64]map[string][]byte{},
	}
	return b, b.init()
}

func (b *bolt) init() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		if err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			b.snapshots = append(b.snapshots, parseSnapshotId(string(name)))
			return nil
		}); err != nil {
			return errors.WithMessage(err, "unable to iterate snapshot buckets")
		}
		sort.Slice(b.snapshots, func(i, j int) bool {
			return b.snapshots[i] < b.snapshots[j]
		})
		return nil
	})
}

func (b *bolt) Save(id int64, name string, payload []byte) error {
	if b.staged[id] == nil {
		b.staged[id] = map[string][]byte{}
	}
	b.staged[id][name] = payload
	return nil
}

func (b *bolt) Persist(id int64) error {
	m, ok := b.staged[id]
	if !ok {
		return fmt.Errorf("snapshot %d not found", id)
	}
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(formatSnapshotId(id)))
		if err != nil {
			return err
		}
		for name, payload := range m {
			if err := bucket.Put([]byte(name), payload); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return errors.WithMessagef(err, "failed to persist %d snapshot payloads", id)
	}
	delete(b.staged, id)
	b.snapshots = append(b.snapshots, id)
	sort.Slice(b.snapshots, func(i, j int) bool {
		return b.snapshots[i] < b.snapshots[j]
	})
	return nil
}

func (b *bolt) Get(name string) ([]byte, error) {
	if len(b.snapshots) == 0 {
		return nil, nil
	}
	latest := b.snapshots[len(b.snapshots)-1]
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(formatSnapshotId(latest)))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket %d not found", latest)
		}
		// bbolt values are only valid inside the transaction
		if v := bucket.Get([]byte(name)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (b *bolt) Close() error {
	return b.db.Close()
}
