// Sets are served as ascending key sequences straight from their skip lists. Unions over several sets have
// to be produced in constant memory, so instead of collecting and sorting every member this module
// implements a heap-based multi-way merge that lazily pulls from the underlying sequences and yields each
// distinct key once, in ascending order.

package scan

import (
	"container/heap"
	"errors"
	"iter"

	"github.com/nobletooth/skipset/pkg/utils"
)

// heapElement represents a pulled key from sequences inside iterHeap.
type heapElement[K any] struct {
	key    K
	seqIdx int // The sequence index inside MultiHead's pull functions that produced this element.
}

// iterHeap holds the iteration state over multiple sequences.
type iterHeap[K any] struct { // Implements heap.Interface.
	compare  utils.CompareFn[K]
	elements []*heapElement[K] // The latest keys pulled from each non-exhausted sequence.
}

var _ heap.Interface = (*iterHeap[int])(nil)

func (ih *iterHeap[K]) Len() int {
	return len(ih.elements)
}

// Less orders elements by key; equal keys are ordered by the index of their sequence.
func (ih *iterHeap[K]) Less(i, j int) bool {
	e1, e2 := ih.elements[i], ih.elements[j]
	if c := ih.compare(e1.key, e2.key); c != 0 {
		return c < 0
	}
	return e1.seqIdx < e2.seqIdx
}

// Swap changes positions of elements at i and j.
func (ih *iterHeap[K]) Swap(i, j int) {
	ih.elements[i], ih.elements[j] = ih.elements[j], ih.elements[i]
}

// Push will add the given element `x` to the heap if it matches the desired type.
func (ih *iterHeap[K]) Push(x any) {
	if element, ok := x.(*heapElement[K]); !ok {
		utils.RaiseInvariant("multi_head", "pushed_invalid_type", "An item with invalid type was pushed to heap.")
	} else if element == nil {
		utils.RaiseInvariant("multi_head", "pushed_nil_element", "A nil element was pushed to iteration heap.")
	} else if len(ih.elements) == cap(ih.elements) {
		utils.RaiseInvariant("multi_head", "exceeded_capacity",
			"An element was pushed while the capacity was full.", "cap", cap(ih.elements))
	} else {
		ih.elements = append(ih.elements, element)
	}
}

// Pop returns and removes the last element in the heap.
func (ih *iterHeap[K]) Pop() any {
	lastElement := ih.elements[len(ih.elements)-1]
	ih.elements = ih.elements[:len(ih.elements)-1]
	return lastElement
}

// MultiHead merges ascending key sequences into one ascending sequence in which every distinct key appears
// once. Sequences are pulled lazily, so memory use stays proportional to len(sequences).
// Note: Each sequence is expected to be strictly increasing under `compare`.
func MultiHead[K any](compare utils.CompareFn[K], sequences []iter.Seq[K]) (iter.Seq[K], error) {
	if compare == nil {
		return nil, errors.New("expected a non-nil comparison function")
	}
	if len(sequences) == 0 {
		return nil, errors.New("expected a non-empty sequences")
	}

	return func(yield func(K) bool) {
		// Pull the first key of every sequence; empty sequences are skipped entirely.
		it := &iterHeap[K]{compare: compare, elements: make([]*heapElement[K], 0, len(sequences))}
		pull := make([]func() (K, bool), 0, len(sequences))
		stop := make([]func(), 0, len(sequences))
		defer func() { // Stop all underlying sequences once iteration is done.
			for _, stopFn := range stop {
				stopFn()
			}
		}()
		for _, seq := range sequences {
			pullFn, stopFn := iter.Pull(seq)
			stop = append(stop, stopFn)
			firstKey, hasAny := pullFn()
			if !hasAny {
				continue
			}
			heap.Push(it, &heapElement[K]{key: firstKey, seqIdx: len(pull)})
			pull = append(pull, pullFn)
		}

		// next pops the minimum key and refills the heap from the sequence that produced it.
		next := func() K {
			top := heap.Pop(it).(*heapElement[K])
			if nextKey, hasNext := pull[top.seqIdx](); hasNext {
				heap.Push(it, &heapElement[K]{key: nextKey, seqIdx: top.seqIdx})
			}
			return top.key
		}

		for it.Len() > 0 {
			key := next()
			// Discard the same key coming from other sequences.
			for it.Len() > 0 && compare(it.elements[0].key, key) == 0 {
				next()
			}
			if !yield(key) {
				return
			}
		}
	}, nil
}
