package rank

import (
	"math"
	"time"
)

// DefaultHalfLifeHours is the standard recency half-life: an item loses
// most of its weight within a day or two of posting.
const DefaultHalfLifeHours = 24

// Decay returns the exponential recency factor exp(-ageHours/halfLifeHours)
// for an item created at createdAt, evaluated at now. It is 1.0 at creation
// and approaches (never reaches) zero as the item ages. Future timestamps
// clamp to 1.0.
//
// This is the single recency primitive in the repo; the trending ranker and
// the feed blender each apply their own multiplier to its output.
func Decay(createdAt, now time.Time, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		halfLifeHours = DefaultHalfLifeHours
	}
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-hours / halfLifeHours)
}
