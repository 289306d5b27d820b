// Package skiplist implements a generic ordered set as a skip list.
//
// A skip list keeps its keys on a sorted linked chain (level 0) and promotes each key to higher levels with
// probability p, forming express lanes that let searches skip over large ranges. Operations start at the
// highest populated level and descend whenever advancing would overshoot the target key.
//
// Properties
// - Expected time complexity of Insert/Delete/Contains/Find: O(log n); Clear and full iteration: O(n)
// - Space complexity: O(n); nodes live in an index-addressed arena and released slots are reused
// - Probabilistic balancing controlled by the promotion probability p (default 0.5) and a height cap (default 16)
// - Deterministic iteration order by key over level 0
//
// A SkipList is not safe for concurrent use. Callers sharing one between goroutines must synchronize every
// call themselves, reads included, since searches reuse per-list scratch space.
package skiplist

import (
	"cmp"
	"iter"
	"log/slog"

	"github.com/nobletooth/skipset/pkg/utils"
)

// SkipList is a probabilistically balanced ordered set of unique keys.
// Keys are strictly ordered by the compare function given at construction; keys comparing equal are duplicates.
type SkipList[K any] struct {
	compare   utils.CompareFn[K]
	store     *nodeStore[K]
	levels    *levelGenerator
	level     int      // Highest level holding at least one node; 0 when empty.
	length    int      // Number of keys on level 0.
	maxHeight int      // Height cap of every node.
	update    []uint32 // Scratch update path filled by locate; one predecessor per level.
}

// New creates an empty skip list over naturally ordered keys.
func New[K cmp.Ordered](opts ...Option) *SkipList[K] {
	return NewWithCompare(cmp.Compare[K], opts...)
}

// NewWithCompare creates an empty skip list ordering keys with `compare`, which must be a strict total order.
func NewWithCompare[K any](compare utils.CompareFn[K], opts ...Option) *SkipList[K] {
	if compare == nil {
		panic("skiplist: expected a non-nil compare function")
	}
	o := newOptions(opts)
	return &SkipList[K]{
		compare:   compare,
		store:     newNodeStore[K](o.maxHeight),
		levels:    newLevelGenerator(o.p, o.maxHeight, newEntropySource()),
		maxHeight: o.maxHeight,
		update:    make([]uint32, o.maxHeight),
	}
}

// locate descends from the highest populated level to level 0, advancing at each level while the next key is
// still less than `key`. If `update` is non-nil, the last node visited on each level (its predecessor) is
// recorded there. It returns the level-0 successor of the final position, i.e. the first node whose key is not
// less than `key`, or nilIndex.
func (s *SkipList[K]) locate(key K, update []uint32) uint32 {
	current := headIndex
	for lvl := s.level - 1; lvl >= 0; lvl-- {
		for next := s.store.at(current).forwards[lvl]; next != nilIndex && s.compare(s.store.at(next).key, key) < 0; next = s.store.at(current).forwards[lvl] {
			current = next
		}
		if update != nil {
			update[lvl] = current
		}
	}
	return s.store.at(current).forwards[0]
}

// holds reports whether the node at `idx` exists and carries `key`.
func (s *SkipList[K]) holds(idx uint32, key K) bool {
	return idx != nilIndex && s.compare(s.store.at(idx).key, key) == 0
}

// Insert adds `key` and returns true, or returns false without any mutation if an equal key already exists.
func (s *SkipList[K]) Insert(key K) bool {
	update := s.update
	if candidate := s.locate(key, update); s.holds(candidate, key) {
		duplicateCounter.Inc()
		return false
	}

	height := s.levels.generate()
	if height > s.level {
		// Nothing exists above the old top level, so the head precedes the new node there.
		for lvl := s.level; lvl < height; lvl++ {
			update[lvl] = headIndex
		}
		s.level = height
	}

	idx := s.store.alloc(key, height)
	inserted := s.store.at(idx)
	for lvl := 0; lvl < height; lvl++ {
		predecessor := s.store.at(update[lvl])
		inserted.forwards[lvl] = predecessor.forwards[lvl]
		predecessor.forwards[lvl] = idx
	}
	s.length++

	insertedCounter.Inc()
	nodeHeightMetric.Observe(float64(height))
	return true
}

// Delete removes `key` and returns true, or returns false if no equal key exists.
func (s *SkipList[K]) Delete(key K) bool {
	if s.length == 0 {
		absentCounter.Inc()
		return false
	}

	update := s.update
	target := s.locate(key, update)
	if !s.holds(target, key) {
		absentCounter.Inc()
		return false
	}

	removed := s.store.at(target)
	for lvl := 0; lvl < s.level; lvl++ {
		predecessor := s.store.at(update[lvl])
		if predecessor.forwards[lvl] != target { // The node doesn't reach this level, nor any above it.
			break
		}
		predecessor.forwards[lvl] = removed.forwards[lvl]
	}
	s.store.release(target)
	s.length--

	// Trim empty top levels.
	for s.level > 0 && s.store.head().forwards[s.level-1] == nilIndex {
		s.level--
	}
	deletedCounter.Inc()
	return true
}

// Contains reports whether an equal key exists.
func (s *SkipList[K]) Contains(key K) bool {
	return s.holds(s.locate(key, nil /*update*/), key)
}

// Find returns an iterator positioned at the key equal to `key`, or End() if there is none.
func (s *SkipList[K]) Find(key K) Iterator[K] {
	if candidate := s.locate(key, nil /*update*/); s.holds(candidate, key) {
		return s.iteratorAt(candidate)
	}
	return s.End()
}

// Len returns the number of keys.
func (s *SkipList[K]) Len() int {
	return s.length
}

// IsEmpty reports whether the skip list holds no keys.
func (s *SkipList[K]) IsEmpty() bool {
	return s.length == 0
}

// Clear removes every key. Iterators obtained before the call become stale.
func (s *SkipList[K]) Clear() {
	released := 0
	for idx := s.store.head().forwards[0]; idx != nilIndex; released++ {
		next := s.store.at(idx).forwards[0] // Read before the slot is released.
		s.store.release(idx)
		idx = next
	}
	if released != s.length {
		// Nodes missing from level 0 would otherwise vanish silently with the arena.
		utils.RaiseInvariant("skiplist", "clear_count_mismatch", "Level 0 doesn't hold every key.",
			"released", released, "length", s.length)
	}
	s.store.reset()
	s.level, s.length = 0, 0

	clearedCounter.Inc()
	slog.Debug("Cleared skip list.", "released", released)
}

// All returns a sequence over the keys in ascending order. The skip list must not be mutated while the
// sequence is being iterated.
func (s *SkipList[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for it := s.Begin(); !it.IsEnd(); it = it.Next() {
			if !yield(it.Key()) {
				return
			}
		}
	}
}
