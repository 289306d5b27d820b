// Package filter puts a bloom filter in front of a skip list set. Most lookups of absent keys are answered by the
// bloom filter alone, without descending the skip list; positives are always confirmed by the set.
//
// Bloom filters can't forget keys, so deletions leave stale bits behind and raise the false positive rate. Once
// enough keys have been deleted since the last rebuild, the filter is rebuilt from the set's members.
package filter

import (
	"cmp"
	"encoding/binary"
	"flag"
	"iter"
	"log/slog"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/nobletooth/skipset/pkg/skiplist"
	"github.com/nobletooth/skipset/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultExpectedKeys      = 10_000
	defaultFalsePositiveRate = 0.01
	defaultRebuildRatio      = 0.5
)

var (
	expectedKeys = flag.Uint("filter_expected_keys", defaultExpectedKeys,
		"The number of keys each set's bloom filter is sized for; the filter grows past it on rebuild.")
	falsePositiveRate = flag.Float64("filter_false_positive_rate", defaultFalsePositiveRate,
		"The target false positive rate of the bloom filters; must be within (0, 1).")
	rebuildRatio = flag.Float64("filter_rebuild_ratio", defaultRebuildRatio,
		"Rebuild a bloom filter once the deletions since its last rebuild exceed this ratio of the live keys.")
)

var (
	lookupsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filter_lookups_total",
		Help: "Total number of filtered set lookups by bloom filter outcome.",
	}, []string{
		"status", // negative | positive | false_positive
	})
	rebuildsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filter_rebuilds_total",
		Help: "Total number of bloom filter rebuilds.",
	})

	negativeCounter      = lookupsMetric.WithLabelValues("negative")
	positiveCounter      = lookupsMetric.WithLabelValues("positive")
	falsePositiveCounter = lookupsMetric.WithLabelValues("false_positive")
)

// Set is an ordered set of unique keys with a bloom filter answering definite negatives.
// Like the skip list it wraps, a Set is not safe for concurrent use.
type Set[K any] struct {
	members  *skiplist.SkipList[K]
	bloom    *bloom.BloomFilter
	hash     func(key K) uint64
	capacity uint    // The number of keys the current bloom filter was sized for.
	fpRate   float64 // Target false positive rate at capacity.
	ratio    float64 // Deleted keys per live key that trigger a rebuild.
	deleted  int     // Deletions since the last rebuild.
}

// New creates an empty filtered set over naturally ordered keys.
func New[K cmp.Ordered](opts ...skiplist.Option) *Set[K] {
	return NewWithCompare(cmp.Compare[K], newKeyHasher[K](), opts...)
}

// NewWithCompare creates an empty filtered set ordering keys with `compare` and feeding the bloom filter with
// `hash`. Keys that `compare` reports equal must hash equally, otherwise lookups miss members. The `opts`
// configure the underlying skip list; the filter itself is configured by flags.
func NewWithCompare[K any](compare utils.CompareFn[K], hash func(key K) uint64, opts ...skiplist.Option) *Set[K] {
	if hash == nil {
		panic("filter: expected a non-nil hash function")
	}
	fpRate := *falsePositiveRate
	if !(fpRate > 0 && fpRate < 1) {
		utils.RaiseInvariant("filter", "invalid_false_positive_rate", "Got an out of range false positive rate.",
			"rate", fpRate, "fallback", defaultFalsePositiveRate)
		fpRate = defaultFalsePositiveRate
	}
	ratio := *rebuildRatio
	if !(ratio > 0) {
		utils.RaiseInvariant("filter", "invalid_rebuild_ratio", "Got a non-positive rebuild ratio.",
			"ratio", ratio, "fallback", defaultRebuildRatio)
		ratio = defaultRebuildRatio
	}
	capacity := max(*expectedKeys, 1)
	return &Set[K]{
		members:  skiplist.NewWithCompare(compare, opts...),
		bloom:    bloom.NewWithEstimates(capacity, fpRate),
		hash:     hash,
		capacity: capacity,
		fpRate:   fpRate,
		ratio:    ratio,
	}
}

// digest encodes the 64-bit hash of `key` as the bloom filter input.
func (s *Set[K]) digest(key K) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], s.hash(key))
	return b[:]
}

// Insert adds `key` and returns true, or returns false if it's already a member.
func (s *Set[K]) Insert(key K) bool {
	if !s.members.Insert(key) {
		return false
	}
	s.bloom.Add(s.digest(key))
	if uint(s.members.Len()) > s.capacity {
		// Past its capacity the filter's false positive rate climbs quickly; resize it.
		s.rebuild(2 * s.capacity)
	}
	return true
}

// Delete removes `key` and returns true, or returns false if it isn't a member.
func (s *Set[K]) Delete(key K) bool {
	if !s.members.Delete(key) {
		return false
	}
	s.deleted++
	if float64(s.deleted) > s.ratio*float64(s.members.Len()) {
		s.rebuild(s.capacity)
	}
	return true
}

// Contains reports whether `key` is a member.
func (s *Set[K]) Contains(key K) bool {
	if !s.bloom.Test(s.digest(key)) {
		negativeCounter.Inc()
		return false
	}
	if s.members.Contains(key) {
		positiveCounter.Inc()
		return true
	}
	falsePositiveCounter.Inc()
	return false
}

// Len returns the number of members.
func (s *Set[K]) Len() int {
	return s.members.Len()
}

// Clear removes every member and resets the bloom filter.
func (s *Set[K]) Clear() {
	s.members.Clear()
	s.bloom.ClearAll()
	s.deleted = 0
}

// All returns a sequence over the members in ascending order. The set must not be mutated while the sequence is
// being iterated.
func (s *Set[K]) All() iter.Seq[K] {
	return s.members.All()
}

// rebuild replaces the bloom filter with one sized for `capacity` keys holding exactly the current members.
func (s *Set[K]) rebuild(capacity uint) {
	s.capacity = capacity
	s.bloom = bloom.NewWithEstimates(capacity, s.fpRate)
	for key := range s.members.All() {
		s.bloom.Add(s.digest(key))
	}
	slog.Debug("Rebuilt bloom filter.", "capacity", capacity, "members", s.members.Len(), "deleted", s.deleted)
	s.deleted = 0
	rebuildsMetric.Inc()
}
