package skiplist

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/nobletooth/skipset/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertNewKeys inserts every key of `keys` into `skipList` and asserts none of them was present before.
func insertNewKeys[K any](t *testing.T, skipList *SkipList[K], keys ...K) {
	t.Helper()
	for _, key := range keys {
		assert.Truef(t, skipList.Insert(key), "Expected key %s to be new.", fmt.Sprint(key))
	}
}

// assertKeys checks `skipList` iterates exactly `expected` and is structurally consistent.
func assertKeys[K any](t *testing.T, skipList *SkipList[K], expected []K) {
	t.Helper()
	got := slices.Collect(skipList.All())
	if len(expected) == 0 {
		assert.Empty(t, got)
	} else {
		assert.Equal(t, expected, got)
	}
	assert.Equal(t, len(expected), skipList.Len())
	assert.NoError(t, skipList.Verify())
}

// shuffled returns a shuffled copy of `keys` using a deterministic source.
func shuffled[K any](keys []K, seed uint64) []K {
	out := slices.Clone(keys)
	rand.New(rand.NewPCG(seed, seed+1)).Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestSkipList_New(t *testing.T) {
	skipList := New[int]()
	assert.Zero(t, skipList.Len())
	assert.True(t, skipList.IsEmpty())
	assert.True(t, skipList.Begin().Equal(skipList.End()))
	assert.Zero(t, skipList.level)
	assert.Equal(t, defaultMaxHeight, skipList.maxHeight)
	assert.NoError(t, skipList.Verify())
}

func TestSkipList_NewWithNilCompare(t *testing.T) {
	assert.Panics(t, func() { NewWithCompare[int](nil /*compare*/) })
}

func TestSkipList_Insert(t *testing.T) {
	t.Run("single_key", func(t *testing.T) {
		skipList := New[int]()
		assert.True(t, skipList.Insert(10))
		assert.Equal(t, 1, skipList.Len())
		assert.False(t, skipList.IsEmpty())
		assert.True(t, skipList.Contains(10))
		assert.GreaterOrEqual(t, skipList.level, 1)
	})
	t.Run("multiple_keys", func(t *testing.T) {
		skipList := New[int]()
		insertNewKeys(t, skipList, 20, 10, 30)
		assert.True(t, skipList.Contains(10))
		assert.True(t, skipList.Contains(20))
		assert.True(t, skipList.Contains(30))
		assert.False(t, skipList.Contains(40))
		assertKeys(t, skipList, []int{10, 20, 30})
	})
	t.Run("duplicate_key", func(t *testing.T) {
		skipList := New[int]()
		assert.True(t, skipList.Insert(50))
		slotsBefore := len(skipList.store.nodes)
		assert.False(t, skipList.Insert(50))
		assert.Equal(t, 1, skipList.Len())
		assert.Equal(t, slotsBefore, len(skipList.store.nodes), "Duplicate inserts must not allocate")
	})
}

func TestSkipList_ContainsOnEmpty(t *testing.T) {
	skipList := New[int]()
	assert.False(t, skipList.Contains(100))
	assert.True(t, skipList.Find(100).IsEnd())
}

// Insert 10, 20 and 10 again; the duplicate is rejected.
func TestSkipList_ScenarioDuplicateInsert(t *testing.T) {
	skipList := New[int]()
	assert.True(t, skipList.Insert(10))
	assert.True(t, skipList.Insert(20))
	assert.False(t, skipList.Insert(10))
	assert.Equal(t, 2, skipList.Len())
	assert.True(t, skipList.Contains(20))
	assert.False(t, skipList.Contains(30))
}

func TestSkipList_Delete(t *testing.T) {
	newFilledList := func(t *testing.T) *SkipList[int] {
		skipList := New[int]()
		insertNewKeys(t, skipList, 10, 20, 30, 40, 50)
		return skipList
	}

	t.Run("middle_key", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.True(t, skipList.Delete(30))
		assert.False(t, skipList.Contains(30))
		assertKeys(t, skipList, []int{10, 20, 40, 50})
	})
	t.Run("first_key", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.True(t, skipList.Delete(10))
		assert.False(t, skipList.Contains(10))
		assert.True(t, skipList.Contains(20))
		assertKeys(t, skipList, []int{20, 30, 40, 50})
	})
	t.Run("last_key", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.True(t, skipList.Delete(50))
		assert.False(t, skipList.Contains(50))
		assert.True(t, skipList.Contains(40))
		assertKeys(t, skipList, []int{10, 20, 30, 40})
	})
	t.Run("first_and_last_keys", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.True(t, skipList.Delete(10))
		assert.True(t, skipList.Delete(50))
		assertKeys(t, skipList, []int{20, 30, 40})
	})
	t.Run("absent_key", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.False(t, skipList.Delete(99))
		assert.False(t, skipList.Delete(15))
		assertKeys(t, skipList, []int{10, 20, 30, 40, 50})
	})
	t.Run("twice", func(t *testing.T) {
		skipList := newFilledList(t)
		assert.True(t, skipList.Delete(20))
		assert.False(t, skipList.Delete(20))
		assert.Equal(t, 4, skipList.Len())
	})
	t.Run("empty_list", func(t *testing.T) {
		skipList := New[int]()
		assert.False(t, skipList.Delete(10))
		assert.True(t, skipList.IsEmpty())
	})
	t.Run("last_remaining_key", func(t *testing.T) {
		skipList := New[int]()
		insertNewKeys(t, skipList, 7)
		assert.True(t, skipList.Delete(7))
		assert.Zero(t, skipList.level, "Top level should shrink back to zero")
		assertKeys(t, skipList, nil)
	})
}

func TestSkipList_InsertTwiceDeleteTwice(t *testing.T) {
	skipList := New[string]()
	assert.Equal(t, []bool{true, false}, []bool{skipList.Insert("k"), skipList.Insert("k")})
	assert.Equal(t, []bool{true, false}, []bool{skipList.Delete("k"), skipList.Delete("k")})
	assert.True(t, skipList.IsEmpty())
}

func TestSkipList_Clear(t *testing.T) {
	t.Run("string_keys", func(t *testing.T) {
		skipList := New[string]()
		insertNewKeys(t, skipList, "hello", "world", "test")
		require.Equal(t, 3, skipList.Len())

		skipList.Clear()
		assert.Zero(t, skipList.Len())
		assert.True(t, skipList.IsEmpty())
		assert.True(t, skipList.Begin().Equal(skipList.End()))
		for _, key := range []string{"hello", "world", "test"} {
			assert.False(t, skipList.Contains(key))
		}
		assert.Zero(t, skipList.level)
		assert.Zero(t, skipList.store.liveCount())
		assert.NoError(t, skipList.Verify())
	})
	t.Run("empty_list", func(t *testing.T) {
		skipList := New[int]()
		skipList.Clear()
		skipList.Clear()
		assert.True(t, skipList.IsEmpty())
		assert.Zero(t, skipList.Len())
	})
	t.Run("reusable_after_clear", func(t *testing.T) {
		skipList := New[int]()
		insertNewKeys(t, skipList, 3, 1, 2)
		skipList.Clear()
		insertNewKeys(t, skipList, 9, 8)
		assertKeys(t, skipList, []int{8, 9})
	})
}

func TestSkipList_StringKeys(t *testing.T) {
	skipList := New[string]()
	insertNewKeys(t, skipList, "gamma", "alpha", "beta")
	assert.True(t, skipList.Contains("beta"))
	assertKeys(t, skipList, []string{"alpha", "beta", "gamma"})
}

func TestSkipList_CustomCompare(t *testing.T) {
	// Case-insensitive keys in descending order.
	descendingFold := func(x, y string) int { return -cmp.Compare(strings.ToLower(x), strings.ToLower(y)) }
	skipList := NewWithCompare(descendingFold)
	insertNewKeys(t, skipList, "b", "C", "a")
	assert.False(t, skipList.Insert("A"), "Keys comparing equal are duplicates")
	assert.True(t, skipList.Contains("c"))
	assertKeys(t, skipList, []string{"C", "b", "a"})
}

func TestSkipList_TinyMaxHeight(t *testing.T) {
	skipList := New[int](WithMaxHeight(1))
	insertNewKeys(t, skipList, shuffled([]int{5, 4, 3, 2, 1}, 3 /*seed*/)...)
	assert.Equal(t, 1, skipList.level)
	assertKeys(t, skipList, []int{1, 2, 3, 4, 5})
}

// 1000 distinct keys inserted in shuffled order are iterated sorted, then deleted in another order.
func TestSkipList_InsertAndDeleteManyKeys(t *testing.T) {
	const samples = 1_000
	keys := make([]int, samples)
	for i := range keys {
		keys[i] = i
	}

	skipList := New[int]()
	insertNewKeys(t, skipList, shuffled(keys, 1 /*seed*/)...)
	require.Equal(t, samples, skipList.Len())
	for _, key := range keys {
		require.True(t, skipList.Contains(key))
	}
	{ // Walk with the explicit iterator API.
		it := skipList.Begin()
		for _, key := range keys {
			require.False(t, it.IsEnd())
			require.Equal(t, key, it.Key())
			it = it.Next()
		}
		assert.True(t, it.Equal(skipList.End()))
	}
	assertKeys(t, skipList, keys)

	for _, key := range shuffled(keys, 2 /*seed*/) {
		require.True(t, skipList.Delete(key))
	}
	assert.True(t, skipList.IsEmpty())
	assert.Zero(t, skipList.Len())
	assert.Zero(t, skipList.level)
	assertKeys(t, skipList, nil)
}

// Random operations are mirrored on a map; both must agree and invariants must hold after every step.
func TestSkipList_RandomOperations(t *testing.T) {
	rnd := rand.New(rand.NewPCG(42, 43))
	skipList := New[int](WithMaxHeight(8))
	model := make(map[int]struct{})

	for step := 0; step < 5_000; step++ {
		key := rnd.IntN(300)
		_, present := model[key]
		switch op := rnd.IntN(10); {
		case op < 5:
			require.Equal(t, !present, skipList.Insert(key), "step %d insert %d", step, key)
			model[key] = struct{}{}
		case op < 9:
			require.Equal(t, present, skipList.Delete(key), "step %d delete %d", step, key)
			delete(model, key)
		default:
			require.Equal(t, present, skipList.Contains(key), "step %d contains %d", step, key)
		}
		if step%100 == 0 {
			require.NoError(t, skipList.Verify(), "step %d", step)
		}
		require.Equal(t, len(model), skipList.Len())
	}

	expected := make([]int, 0, len(model))
	for key := range model {
		expected = append(expected, key)
	}
	slices.Sort(expected)
	assertKeys(t, skipList, expected)
	// Every freed slot is either reused or waiting on the free-list.
	assert.Equal(t, len(model), skipList.store.liveCount())
}

func TestSkipList_AllStopsEarly(t *testing.T) {
	skipList := New[int]()
	insertNewKeys(t, skipList, 4, 2, 3, 1)
	var got []int
	for key := range skipList.All() {
		if key > 2 {
			break
		}
		got = append(got, key)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestSkipList_ClearCountMismatch(t *testing.T) {
	utils.DisableInvariantPanics(t)
	skipList := New[int]()
	insertNewKeys(t, skipList, 1, 2, 3)
	skipList.length = 5 // Corrupt the bookkeeping.

	before := utils.GetMetricValue("skiplist", "clear_count_mismatch")
	skipList.Clear()
	assert.Equal(t, before+1, utils.GetMetricValue("skiplist", "clear_count_mismatch"))
	assert.True(t, skipList.IsEmpty())
}

func BenchmarkSkipList_Insert(b *testing.B) {
	skipList := New[int]()
	rnd := rand.New(rand.NewPCG(7, 8))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		skipList.Insert(rnd.Int())
	}
}

func BenchmarkSkipList_Contains(b *testing.B) {
	skipList := New[int]()
	for i := 0; i < 100_000; i++ {
		skipList.Insert(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		skipList.Contains(i % 100_000)
	}
}
