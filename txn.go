package kstack

// txn is the rollback journal behind every multi-step index update. Each
// guarded step registers the closure undoing exactly that step; on failure
// the journal unwinds in reverse acquisition order, on success commit drops
// it untouched.
type txn struct {
	undo []func()
}

func (t *txn) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txn) commit() {
	t.undo = nil
}

type stage int

const (
	stageClone stage = iota
	stageGroup
	stageValue
	stageOrder
	stagePositions
)

// allocHook lets tests fail a guarded step. Production code never sets it;
// a real Go allocation failure aborts the process, so the rollback paths can
// only be exercised through this seam.
var allocHook func(s stage) error

func failStep(s stage) error {
	if allocHook != nil {
		return allocHook(s)
	}
	return nil
}
