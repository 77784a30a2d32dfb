package snapshot

import (
	"fmt"
	"sort"

	"github.com/xujiajun/nutsdb"

	"github.com/RuiFG/kstack/log"
)

// memory keeps everything in process, for tests and ephemeral stacks.
type memory struct {
	staged    map[int64]map[string][]byte
	snapshots []int64
}

func NewMemoryBackend() Backend {
	return &memory{staged: map[int64]map[string][]byte{}}
}

func (m *memory) Save(id int64, name string, payload []byte) error {
	if m.staged[id] == nil {
		m.staged[id] = map[string][]byte{}
	}
	m.staged[id][name] = payload
	return nil
}

func (m *memory) Persist(id int64) error {
	if _, ok := m.staged[id]; !ok {
		return fmt.Errorf("snapshot %d not found", id)
	}
	m.snapshots = append(m.snapshots, id)
	sort.Slice(m.snapshots, func(i, j int) bool { return m.snapshots[i] < m.snapshots[j] })
	return nil
}

func (m *memory) Get(name string) ([]byte, error) {
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	return m.staged[m.snapshots[len(m.snapshots)-1]][name], nil
}

func (m *memory) Close() error { return nil }

type fs struct {
	logger log.Logger
	db     *nutsdb.DB
	//storage stages all snapshot payloads
	storage map[int64]map[string][]byte
	//snapshots are currently persisted snapshot id sorted slice
	snapshots []int64
	//snapshotsTotalNum
	snapshotsTotalNum    int
	snapshotsNumMerged   int
	snapshotsNumRetained int
}

func (r *fs) init() error {
	return r.db.View(func(tx *nutsdb.Tx) error {
		if err := tx.IterateBuckets(nutsdb.DataStructureBPTree, "*", func(key string) bool {
			r.snapshots = append(r.snapshots, parseSnapshotId(key))
			return true
		}); err != nil {
			return fmt.Errorf("unable to iterate snapshots, the storage maybe corrupted: %w", err)
		}
		sort.Slice(r.snapshots, func(i, j int) bool {
			return r.snapshots[i] < r.snapshots[j]
		})
		for _, snapshotId := range r.snapshots {
			if entries, err := tx.GetAll(formatSnapshotId(snapshotId)); err != nil {
				return fmt.Errorf("failed to get %d snapshot payloads: %w", snapshotId, err)
			} else {
				if len(entries) > 0 {
					payloads := map[string][]byte{}
					for _, entry := range entries {
						payloads[string(entry.Key)] = entry.Value
					}
					r.storage[snapshotId] = payloads
				}
			}
		}
		return nil
	})
}

// Save payload according to snapshot id and stack name
// if the snapshot does not exist, will create
func (r *fs) Save(id int64, name string, payload []byte) error {
	if r.storage[id] == nil {
		r.storage[id] = map[string][]byte{}
	}
	r.storage[id][name] = payload
	return nil
}

// Persist snapshot to db file
func (r *fs) Persist(id int64) error {
	m, ok := r.storage[id]
	if !ok {
		return fmt.Errorf("snapshot %d not found", id)
	}
	r.snapshots = append(r.snapshots, id)

	//1. persist snapshot payloads into db
	if err := r.db.Update(func(tx *nutsdb.Tx) error {
		for name, payload := range m {
			if err := tx.Put(formatSnapshotId(id), []byte(name), payload, 0); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to persist %d snapshot payloads: %w", id, err)
	}
	r.snapshotsTotalNum += 1
	//2.clean up expired snapshots in db
	//3.clean up snapshot payloads in memory
	if r.snapshotsTotalNum%r.snapshotsNumRetained == 0 {
		if err := r.db.Update(func(tx *nutsdb.Tx) error {
			var deletedSnapshotIds []int64
			if len(r.snapshots) > r.snapshotsNumRetained {
				deletedSnapshotIds = r.snapshots[:len(r.snapshots)-r.snapshotsNumRetained]
				r.snapshots = r.snapshots[len(r.snapshots)-r.snapshotsNumRetained:]
			}
			for _, deletedSnapshotId := range deletedSnapshotIds {
				if err := tx.DeleteBucket(nutsdb.DataStructureBPTree, formatSnapshotId(deletedSnapshotId)); err != nil {
					return err
				}
			}
			for _, deletedSnapshotId := range deletedSnapshotIds {
				delete(r.storage, deletedSnapshotId)
			}
			return nil
		}); err != nil {
			r.logger.Warnf("failed to clear up expired snapshots: %v", err)
		}
	}
	if r.snapshotsTotalNum%r.snapshotsNumMerged == 0 {
		//4.merge fs state
		if err := r.db.Merge(); err != nil {
			r.logger.Warnf("failed to merge fs state: %v", err)
		}
	}
	return nil
}

func (r *fs) Get(name string) ([]byte, error) {
	if len(r.snapshots) > 0 {
		latest := r.snapshots[len(r.snapshots)-1]
		if payloads, ok := r.storage[latest]; ok {
			return payloads[name], nil
		}
		return nil, fmt.Errorf("snapshot backend for snapshot %d not found", latest)
	}
	return nil, nil
}

func (r *fs) Close() error {
	return r.db.Close()
}

func NewFSBackend(logger log.Logger, snapshotsDir string, snapshotsNumRetained int, snapshotsNumMerged int) (Backend, error) {
	opts := nutsdb.DefaultOptions
	opts.SegmentSize = 1 * nutsdb.GB
	opts.Dir = snapshotsDir
	db, err := nutsdb.Open(opts)
	if err != nil {
		return nil, err
	}
	store := &fs{
		logger:               logger.Named("fs"),
		db:                   db,
		storage:              map[int64]map[string][]byte{},
		snapshots:            []int64{},
		snapshotsNumRetained: snapshotsNumRetained,
		snapshotsNumMerged:   snapshotsNumMerged,
	}
	return store, store.init()
}
