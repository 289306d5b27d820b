package skiplist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTallList returns a skip list whose first key reaches level 1 and holds keys 1..5.
func newTallList(t *testing.T) *SkipList[int] {
	t.Helper()
	for {
		skipList := New[int](WithMaxHeight(4))
		insertNewKeys(t, skipList, 1, 2, 3, 4, 5)
		require.NoError(t, skipList.Verify())
		if skipList.store.head().forwards[1] != nilIndex {
			return skipList
		}
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	for _, testCase := range []struct {
		name    string
		corrupt func(skipList *SkipList[int])
		errPart string
	}{
		{
			name:    "wrong_length",
			corrupt: func(skipList *SkipList[int]) { skipList.length++ },
			errPart: "length is 6 but level 0 holds 5 keys",
		},
		{
			name:    "wrong_level",
			corrupt: func(skipList *SkipList[int]) { skipList.level = 0 },
			errPart: "current level is 0",
		},
		{
			name: "unsorted_level_zero",
			corrupt: func(skipList *SkipList[int]) {
				skipList.store.at(skipList.Find(2).index).key = 9
			},
			errPart: "level 0 is not strictly increasing",
		},
		{
			name: "level_not_a_subsequence",
			corrupt: func(skipList *SkipList[int]) {
				// Unlink the tallest first node from level 0 only.
				head := skipList.store.head()
				first := head.forwards[1]
				for idx := headIndex; ; idx = skipList.store.at(idx).forwards[0] {
					if skipList.store.at(idx).forwards[0] == first {
						skipList.store.at(idx).forwards[0] = skipList.store.at(first).forwards[0]
						break
					}
				}
				skipList.length--
			},
			errPart: "missing from level 0",
		},
		{
			name: "level_missing_tall_node",
			corrupt: func(skipList *SkipList[int]) {
				head := skipList.store.head()
				head.forwards[1] = skipList.store.at(head.forwards[1]).forwards[1]
			},
			errPart: "nodes reach it",
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			skipList := newTallList(t)
			testCase.corrupt(skipList)
			err := skipList.Verify()
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.errPart)
		})
	}
}
