package skiplist

import "math"

const (
	// headIndex is the arena slot of the sentinel head.
	headIndex uint32 = 0
	// nilIndex terminates a level chain. It aliases headIndex since the head is never anyone's successor.
	nilIndex uint32 = 0
)

// node is a single arena slot. A live node holds a key and one forward link per level it participates in.
type node[K any] struct {
	key      K
	forwards []uint32 // Arena indices of the next node per level (0..height-1); nilIndex when last.
	// generation is bumped every time the slot is released, so handles to the previous occupant can tell.
	generation uint32
}

// height returns the number of levels the node participates in.
func (n *node[K]) height() int {
	return len(n.forwards)
}

// nodeStore owns every node of a skip list. Nodes reference each other by arena index, never by pointer, so
// releasing a node never touches the nodes it links to. NOTE: Pointers returned by `at` are only valid until
// the next `alloc`, which may grow the arena.
type nodeStore[K any] struct {
	nodes []node[K] // Slot 0 is the head.
	free  []uint32  // Released slots, reused LIFO.
	// epoch is bumped on reset; iterators created before a reset are stale even if their slot was reused.
	epoch uint64
}

// newNodeStore is the constructor for nodeStore. The head gets `maxHeight` forward links.
func newNodeStore[K any](maxHeight int) *nodeStore[K] {
	store := &nodeStore[K]{nodes: make([]node[K], 1)}
	store.nodes[headIndex].forwards = make([]uint32, maxHeight)
	return store
}

// head returns the sentinel head.
func (s *nodeStore[K]) head() *node[K] {
	return &s.nodes[headIndex]
}

// at returns the node stored at `idx`.
func (s *nodeStore[K]) at(idx uint32) *node[K] {
	return &s.nodes[idx]
}

// alloc stores `key` in a free slot with `height` unlinked forward pointers and returns the slot index.
func (s *nodeStore[K]) alloc(key K, height int) uint32 {
	var idx uint32
	if freeCount := len(s.free); freeCount > 0 {
		idx = s.free[freeCount-1]
		s.free = s.free[:freeCount-1]
	} else {
		if uint64(len(s.nodes)) > math.MaxUint32 {
			// Unrecoverable, just like the runtime running out of memory.
			panic("skiplist: node arena exhausted")
		}
		s.nodes = append(s.nodes, node[K]{})
		idx = uint32(len(s.nodes) - 1)
	}

	n := &s.nodes[idx]
	n.key = key
	if cap(n.forwards) >= height { // Reuse the links left by the previous occupant.
		n.forwards = n.forwards[:height]
		clear(n.forwards)
	} else {
		n.forwards = make([]uint32, height)
	}
	return idx
}

// release gives the slot at `idx` back to the store. The caller must have unlinked it from every level.
func (s *nodeStore[K]) release(idx uint32) {
	n := &s.nodes[idx]
	var zero K
	n.key = zero // Let the GC collect whatever the key references.
	clear(n.forwards)
	n.forwards = n.forwards[:0]
	n.generation++
	s.free = append(s.free, idx)
}

// reset drops every node except the head and unlinks the head on every level.
func (s *nodeStore[K]) reset() {
	clear(s.head().forwards)
	clear(s.nodes[1:])
	s.nodes = s.nodes[:1]
	s.free = s.free[:0]
	s.epoch++
}

// liveCount returns the number of occupied slots, excluding the head.
func (s *nodeStore[K]) liveCount() int {
	return len(s.nodes) - 1 - len(s.free)
}
