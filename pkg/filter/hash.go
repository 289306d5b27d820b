package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// newKeyHasher returns a 64-bit hash function for keys of type K. Common key types are hashed over their fixed-size
// binary representation; anything else falls back to its Go-syntax representation.
func newKeyHasher[K any]() func(key K) uint64 {
	switch any(*new(K)).(type) {
	case string:
		return func(key K) uint64 {
			return xxhash.Sum64String(any(key).(string))
		}
	case []byte:
		return func(key K) uint64 {
			return xxhash.Sum64(any(key).([]byte))
		}
	case int:
		return func(key K) uint64 {
			var b [8]byte
			// int's size is architecture-dependent, so it's widened before hashing.
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int)))
			return xxhash.Sum64(b[:])
		}
	case uint:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(uint)))
			return xxhash.Sum64(b[:])
		}
	case int32:
		return func(key K) uint64 {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(any(key).(int32)))
			return xxhash.Sum64(b[:])
		}
	case uint32:
		return func(key K) uint64 {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], any(key).(uint32))
			return xxhash.Sum64(b[:])
		}
	case int64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int64)))
			return xxhash.Sum64(b[:])
		}
	case uint64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], any(key).(uint64))
			return xxhash.Sum64(b[:])
		}
	default:
		return func(key K) uint64 {
			// Slow, but works for any printable type such as structs.
			return xxhash.Sum64String(fmt.Sprintf("%#v", key))
		}
	}
}
