package skiplist

import (
	"flag"

	"github.com/nobletooth/skipset/pkg/utils"
)

const (
	defaultMaxHeight            = 16
	defaultPromotionProbability = 0.5
	// heightLimit is the largest accepted max height; 2^64 keys never need more express lanes.
	heightLimit = 64
)

var (
	maxHeightFlag = flag.Int("skiplist_max_height", defaultMaxHeight,
		"The maximum number of levels a skip list node may participate in; must be within [1, 64].")
	promotionProbabilityFlag = flag.Float64("skiplist_promotion_probability", defaultPromotionProbability,
		"The probability that a new skip list node is promoted to the next level; must be within (0, 1).")
)

// options holds the construction parameters of a SkipList.
type options struct {
	maxHeight int     // Height cap of every node, including the head.
	p         float64 // Promotion probability of the level generator.
}

// Option overrides a flag-provided default of a SkipList.
type Option func(*options)

// WithMaxHeight caps node heights at `maxHeight`.
func WithMaxHeight(maxHeight int) Option {
	return func(o *options) { o.maxHeight = maxHeight }
}

// WithPromotionProbability sets the probability `p` of promoting a node by one more level.
func WithPromotionProbability(p float64) Option {
	return func(o *options) { o.p = p }
}

// newOptions applies `opts` on top of the flag defaults. Invalid values are reported and replaced by the
// built-in defaults, so a skip list can always be constructed.
func newOptions(opts []Option) options {
	o := options{maxHeight: *maxHeightFlag, p: *promotionProbabilityFlag}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.maxHeight < 1 || o.maxHeight > heightLimit {
		utils.RaiseInvariant("skiplist", "invalid_max_height", "Got an out of range max height.",
			"maxHeight", o.maxHeight, "fallback", defaultMaxHeight)
		o.maxHeight = defaultMaxHeight
	}
	if !(o.p > 0 && o.p < 1) { // Also rejects NaN.
		utils.RaiseInvariant("skiplist", "invalid_promotion_probability", "Got an out of range probability.",
			"p", o.p, "fallback", defaultPromotionProbability)
		o.p = defaultPromotionProbability
	}
	return o
}
