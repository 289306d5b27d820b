// KEYS and similar commands check keys against glob patterns while streaming them; the following module
// implements glob matching over key sequences.

package scan

import (
	"iter"

	"v.io/v23/glob"
)

// MatchGlob filters the `keys` stream with the given glob `pattern`. An invalid pattern matches nothing.
func MatchGlob(pattern string, keys iter.Seq[string]) iter.Seq[string] {
	parsedPattern, err := glob.Parse(pattern)
	if err != nil { // If pattern is invalid, return empty sequence.
		return func(yield func(string) bool) {}
	}
	matcher := parsedPattern.Head()
	return func(yield func(string) bool) {
		for key := range keys {
			if matcher.Match(key) && !yield(key) {
				return
			}
		}
	}
}
