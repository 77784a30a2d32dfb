package kstack

import (
	"cmp"
	"sort"
)

// entryRef locates one live entry across the indexes without holding native
// references: seq is the entry's immutable push ticket, key names the group
// and idx is the value's position inside the group's sequence.
type entryRef[K cmp.Ordered] struct {
	seq uint64
	key K
	idx int
}

// group is the per-key value sequence, oldest first. Values enter at the
// back and leave from the back only, so idx stays valid for live entries.
type group[V any] struct {
	values []V
}

// block owns the three coupled indexes describing one stack's live entries:
// groups (key to value sequence), order (global push order) and positions
// (group to the global sequence numbers it occupies). Cross references are
// logical, never pointers, so blocks clone without iterator rebinding.
//
// keys mirrors the distinct group keys in sorted order for key iteration,
// version counts structural changes and refs counts the KeyedStack handles
// currently bound to this block.
type block[K cmp.Ordered, V any] struct {
	groups    map[K]*group[V]
	order     []entryRef[K]
	positions map[K][]uint64

	keys    []K
	nextSeq uint64
	version uint64
	refs    int
}

func newBlock[K cmp.Ordered, V any]() *block[K, V] {
	return &block[K, V]{
		groups:    map[K]*group[V]{},
		positions: map[K][]uint64{},
	}
}

// clone rebuilds an independent block holding the same live entries. Group
// sequences and the global order are copied element by element and the
// position index is reconstructed from the copied order, so nothing in the
// clone refers back into the source block.
func (b *block[K, V]) clone() *block[K, V] {
	nb := &block[K, V]{
		groups:    make(map[K]*group[V], len(b.groups)),
		order:     make([]entryRef[K], len(b.order)),
		positions: make(map[K][]uint64, len(b.positions)),
		keys:      append([]K(nil), b.keys...),
		nextSeq:   b.nextSeq,
	}
	for k, g := range b.groups {
		nb.groups[k] = &group[V]{values: append([]V(nil), g.values...)}
	}
	copy(nb.order, b.order)
	for _, ref := range nb.order {
		nb.positions[ref.key] = append(nb.positions[ref.key], ref.seq)
	}
	return nb
}

// push appends the entry to all three indexes. Each step registers its undo
// with t; the caller rolls t back on error so a failed push is unobservable.
func (b *block[K, V]) push(t *txn, key K, value V) error {
	if err := failStep(stageGroup); err != nil {
		return err
	}
	g, ok := b.groups[key]
	if !ok {
		g = &group[V]{}
		b.groups[key] = g
		b.insertKey(key)
		t.onRollback(func() {
			delete(b.groups, key)
			b.removeKey(key)
		})
	}

	if err := failStep(stageValue); err != nil {
		return err
	}
	g.values = append(g.values, value)
	t.onRollback(func() {
		g.values = g.values[:len(g.values)-1]
	})

	seq := b.nextSeq
	if err := failStep(stageOrder); err != nil {
		return err
	}
	b.order = append(b.order, entryRef[K]{seq: seq, key: key, idx: len(g.values) - 1})
	t.onRollback(func() {
		b.order = b.order[:len(b.order)-1]
	})

	if err := failStep(stagePositions); err != nil {
		return err
	}
	b.positions[key] = append(b.positions[key], seq)
	t.onRollback(func() {
		if ps := b.positions[key]; len(ps) == 1 {
			delete(b.positions, key)
		} else {
			b.positions[key] = ps[:len(ps)-1]
		}
	})

	b.nextSeq++
	b.version++
	return nil
}

// pop removes the global top. The caller has checked the block is non-empty;
// every removal below targets the entry identified by ref, never re-derived.
func (b *block[K, V]) pop() (K, V) {
	ref := b.order[len(b.order)-1]
	g := b.groups[ref.key]

	if ps := b.positions[ref.key]; len(ps) == 1 {
		delete(b.positions, ref.key)
	} else {
		b.positions[ref.key] = ps[:len(ps)-1]
	}
	v := g.values[ref.idx]
	g.values = g.values[:len(g.values)-1]
	if len(g.values) == 0 {
		delete(b.groups, ref.key)
		b.removeKey(ref.key)
	}
	b.order = b.order[:len(b.order)-1]
	b.version++
	return ref.key, v
}

// popKey removes the key's top. The group's last recorded global sequence
// number locates the order entry to erase; the order slice stays strictly
// increasing in seq, so the lookup is a binary search.
func (b *block[K, V]) popKey(key K) V {
	g := b.groups[key]
	ps := b.positions[key]
	seq := ps[len(ps)-1]

	i := b.locate(seq)
	b.order = append(b.order[:i], b.order[i+1:]...)
	if len(ps) == 1 {
		delete(b.positions, key)
	} else {
		b.positions[key] = ps[:len(ps)-1]
	}
	v := g.values[len(g.values)-1]
	g.values = g.values[:len(g.values)-1]
	if len(g.values) == 0 {
		delete(b.groups, key)
		b.removeKey(key)
	}
	b.version++
	return v
}

func (b *block[K, V]) clear() {
	b.groups = map[K]*group[V]{}
	b.order = nil
	b.positions = map[K][]uint64{}
	b.keys = nil
	b.version++
}

func (b *block[K, V]) top() entryRef[K] {
	return b.order[len(b.order)-1]
}

func (b *block[K, V]) locate(seq uint64) int {
	return sort.Search(len(b.order), func(i int) bool {
		return b.order[i].seq >= seq
	})
}

func (b *block[K, V]) insertKey(key K) {
	i := sort.Search(len(b.keys), func(i int) bool {
		return b.keys[i] >= key
	})
	b.keys = append(b.keys, key)
	copy(b.keys[i+1:], b.keys[i:])
	b.keys[i] = key
}

func (b *block[K, V]) removeKey(key K) {
	i := sort.Search(len(b.keys), func(i int) bool {
		return b.keys[i] >= key
	})
	if i < len(b.keys) && b.keys[i] == key {
		b.keys = append(b.keys[:i], b.keys[i+1:]...)
	}
}
