package skiplist

import (
	"errors"
	"fmt"
)

// Verify walks every level and checks the structural invariants of the skip list:
//   - level 0 is strictly increasing, hence holds no duplicates;
//   - every level above 0 is an ordered subsequence of the level below, holding exactly the nodes tall enough;
//   - node heights are within [1, maxHeight];
//   - the current level is the highest level the head links on;
//   - the length matches the number of keys on level 0.
//
// It returns nil on a consistent skip list, or every violation joined together.
func (s *SkipList[K]) Verify() error {
	var errs []error
	head := s.store.head()

	highestLinked := 0
	for lvl := len(head.forwards) - 1; lvl >= 0; lvl-- {
		if head.forwards[lvl] != nilIndex {
			highestLinked = lvl + 1
			break
		}
	}
	if s.level != highestLinked {
		errs = append(errs, fmt.Errorf("current level is %d but the head links up to level %d", s.level, highestLinked))
	}

	// Walk level 0 and remember each node's position for the upper levels.
	positions := make(map[ /*index*/ uint32] /*position*/ int, s.length)
	tallerThan := make([]int, s.maxHeight) // tallerThan[lvl] counts nodes with height > lvl.
	var prev *node[K]
	for idx := head.forwards[0]; idx != nilIndex; idx = s.store.at(idx).forwards[0] {
		if _, seen := positions[idx]; seen {
			errs = append(errs, fmt.Errorf("level 0 has a cycle at slot %d", idx))
			break
		}
		current := s.store.at(idx)
		if current.height() < 1 || current.height() > s.maxHeight {
			errs = append(errs, fmt.Errorf("slot %d has height %d outside [1, %d]", idx, current.height(), s.maxHeight))
			break
		}
		if prev != nil && s.compare(prev.key, current.key) >= 0 {
			errs = append(errs, fmt.Errorf("level 0 is not strictly increasing at slot %d (position %d)", idx, len(positions)))
		}
		for lvl := 0; lvl < current.height(); lvl++ {
			tallerThan[lvl]++
		}
		positions[idx] = len(positions)
		prev = current
	}
	if len(positions) != s.length {
		errs = append(errs, fmt.Errorf("length is %d but level 0 holds %d keys", s.length, len(positions)))
	}

	for lvl := 1; lvl < s.maxHeight; lvl++ {
		chainLength, lastPosition := 0, -1
		for idx := head.forwards[lvl]; idx != nilIndex; {
			position, onLevelZero := positions[idx]
			if !onLevelZero {
				errs = append(errs, fmt.Errorf("level %d links slot %d which is missing from level 0", lvl, idx))
				break
			}
			if position <= lastPosition {
				errs = append(errs, fmt.Errorf("level %d is not a subsequence of level %d at slot %d", lvl, lvl-1, idx))
				break
			}
			current := s.store.at(idx)
			if current.height() <= lvl {
				errs = append(errs, fmt.Errorf("level %d links slot %d of height %d", lvl, idx, current.height()))
				break
			}
			chainLength++
			lastPosition = position
			idx = current.forwards[lvl]
		}
		if chainLength != tallerThan[lvl] {
			errs = append(errs, fmt.Errorf("level %d links %d nodes but %d nodes reach it", lvl, chainLength, tallerThan[lvl]))
		}
	}

	return errors.Join(errs...)
}
