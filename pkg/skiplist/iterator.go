package skiplist

import "github.com/nobletooth/skipset/pkg/utils"

// Iterator is a forward cursor over the keys of a SkipList in ascending order.
// Iterators are values: Next returns the advanced iterator and leaves the receiver untouched.
//
// An iterator is invalidated once the node it references is deleted or the skip list is cleared. A stale
// iterator is detected through the slot generation and the store epoch rather than reading a reused slot;
// dereferencing it raises an invariant and yields the zero key.
type Iterator[K any] struct {
	list       *SkipList[K]
	index      uint32 // Arena slot of the referenced node; nilIndex for the end iterator.
	generation uint32 // Slot generation at creation time.
	epoch      uint64 // Store epoch at creation time.
}

// iteratorAt returns an iterator referencing the node at `idx`, or End() for nilIndex.
func (s *SkipList[K]) iteratorAt(idx uint32) Iterator[K] {
	if idx == nilIndex {
		return s.End()
	}
	return Iterator[K]{list: s, index: idx, generation: s.store.at(idx).generation, epoch: s.store.epoch}
}

// Begin returns an iterator at the smallest key, or End() when the skip list is empty.
func (s *SkipList[K]) Begin() Iterator[K] {
	return s.iteratorAt(s.store.head().forwards[0])
}

// End returns the past-the-last iterator.
func (s *SkipList[K]) End() Iterator[K] {
	return Iterator[K]{list: s, index: nilIndex}
}

// IsEnd reports whether the iterator is past the last key.
func (it Iterator[K]) IsEnd() bool {
	return it.index == nilIndex
}

// stale reports whether the referenced node was released since the iterator was created.
func (it Iterator[K]) stale() bool {
	store := it.list.store
	return it.epoch != store.epoch || int(it.index) >= len(store.nodes) ||
		store.at(it.index).generation != it.generation
}

// Valid reports whether the iterator references a live node and may be dereferenced.
func (it Iterator[K]) Valid() bool {
	return it.list != nil && !it.IsEnd() && !it.stale()
}

// Key returns the key the iterator references.
func (it Iterator[K]) Key() K {
	var zero K
	if it.IsEnd() {
		utils.RaiseInvariant("skiplist", "end_iterator_dereference", "Dereferenced an end iterator.")
		return zero
	}
	if it.stale() {
		utils.RaiseInvariant("skiplist", "stale_iterator", "Dereferenced an invalidated iterator.",
			"index", it.index, "generation", it.generation)
		return zero
	}
	return it.list.store.at(it.index).key
}

// Next returns an iterator at the following key, or End() past the last one. Advancing End() yields End().
func (it Iterator[K]) Next() Iterator[K] {
	if it.IsEnd() {
		return it
	}
	if it.stale() {
		utils.RaiseInvariant("skiplist", "stale_iterator", "Advanced an invalidated iterator.",
			"index", it.index, "generation", it.generation)
		return it.list.End()
	}
	return it.list.iteratorAt(it.list.store.at(it.index).forwards[0])
}

// Equal reports whether both iterators reference the same node of the same skip list, or are both End().
func (it Iterator[K]) Equal(other Iterator[K]) bool {
	if it.list != other.list || it.index != other.index {
		return false
	}
	return it.IsEnd() || (it.generation == other.generation && it.epoch == other.epoch)
}
