package port

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/nobletooth/skipset/pkg/filter"
	"github.com/nobletooth/skipset/pkg/scan"
	"github.com/nobletooth/skipset/pkg/skiplist"
	"github.com/nobletooth/skipset/pkg/utils"
)

// SetStore holds the named sets served by skip set ports, e.g. Redis.
// Skip lists aren't safe for concurrent use, so every access to the store goes through a single mutex.
type SetStore struct {
	mux   sync.Mutex
	names *skiplist.SkipList[string]     // Names of the non-empty sets, in ascending order.
	sets  map[string]*filter.Set[string] // Members by set name.
}

// NewSetStore creates an empty SetStore.
func NewSetStore() *SetStore {
	return &SetStore{names: skiplist.New[string](), sets: make(map[string]*filter.Set[string])}
}

// Add inserts `members` into the set called `name`, creating it if needed, and returns the number of members that
// weren't already in the set.
func (ss *SetStore) Add(name string, members ...string) int {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	set, found := ss.sets[name]
	if !found {
		set = filter.New[string]()
	}
	added := 0
	for _, member := range members {
		if set.Insert(member) {
			added++
		}
	}
	if !found && set.Len() > 0 {
		ss.sets[name] = set
		ss.names.Insert(name)
	}
	return added
}

// Remove deletes `members` from the set called `name` and returns the number of members that were removed. A set
// losing its last member is removed from the store.
func (ss *SetStore) Remove(name string, members ...string) int {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	set, found := ss.sets[name]
	if !found {
		return 0
	}
	removed := 0
	for _, member := range members {
		if set.Delete(member) {
			removed++
		}
	}
	if set.Len() == 0 {
		ss.dropLocked(name)
	}
	return removed
}

// IsMember reports whether `member` belongs to the set called `name`.
func (ss *SetStore) IsMember(name, member string) bool {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	set, found := ss.sets[name]
	return found && set.Contains(member)
}

// Card returns the number of members of the set called `name`; missing sets are empty.
func (ss *SetStore) Card(name string) int {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	if set, found := ss.sets[name]; found {
		return set.Len()
	}
	return 0
}

// Members returns the members of the set called `name` in ascending order.
func (ss *SetStore) Members(name string) []string {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	set, found := ss.sets[name]
	if !found {
		return []string{}
	}
	members := make([]string, 0, set.Len())
	for member := range set.All() {
		members = append(members, member)
	}
	return members
}

// Union returns the members of every set in `names`, each once and in ascending order. Missing sets are empty.
func (ss *SetStore) Union(names ...string) ([]string, error) {
	if len(names) == 0 {
		return nil, errors.New("expected at least one set name")
	}

	ss.mux.Lock()
	defer ss.mux.Unlock()

	sequences := make([]iter.Seq[string], 0, len(names))
	for _, name := range names {
		if set, found := ss.sets[name]; found {
			sequences = append(sequences, set.All())
		}
	}
	if len(sequences) == 0 {
		return []string{}, nil
	}
	merged, err := scan.MultiHead(cmp.Compare[string], sequences)
	if err != nil {
		return nil, fmt.Errorf("failed to merge sets: %w", err)
	}
	union := slices.Collect(merged)
	if union == nil {
		union = []string{}
	}
	return union, nil
}

// Keys returns the names of the sets matching the glob `pattern`, in ascending order.
func (ss *SetStore) Keys(pattern string) []string {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	keys := make([]string, 0)
	for name := range scan.MatchGlob(pattern, ss.names.All()) {
		keys = append(keys, name)
	}
	return keys
}

// Delete removes the sets called `names` and returns how many of them existed.
func (ss *SetStore) Delete(names ...string) int {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	deleted := 0
	for _, name := range names {
		if _, found := ss.sets[name]; found {
			ss.dropLocked(name)
			deleted++
		}
	}
	return deleted
}

// Flush removes every set.
func (ss *SetStore) Flush() {
	ss.mux.Lock()
	defer ss.mux.Unlock()

	for _, set := range ss.sets {
		set.Clear()
	}
	clear(ss.sets)
	ss.names.Clear()
	slog.Info("Flushed all sets.")
}

// Len returns the number of sets.
func (ss *SetStore) Len() int {
	ss.mux.Lock()
	defer ss.mux.Unlock()
	return ss.names.Len()
}

// dropLocked removes the set called `name`; `mux` must be held.
func (ss *SetStore) dropLocked(name string) {
	delete(ss.sets, name)
	if !ss.names.Delete(name) {
		utils.RaiseInvariant("store", "missing_set_name", "A stored set was missing from the names directory.",
			"name", name)
	}
}
