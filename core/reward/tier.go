package reward

import "time"

// Tier is the cosmetic membership label derived from account age.
type Tier string

const (
	TierHello   Tier = "Hello"
	TierFriend  Tier = "Friend"
	TierRegular Tier = "Regular"
	TierFamily  Tier = "Family"
)

// TierForDays maps whole days of membership to a tier, highest band
// first.
func TierForDays(days int64) Tier {
	switch {
	case days >= 100:
		return TierFamily
	case days >= 30:
		return TierRegular
	case days >= 7:
		return TierFriend
	default:
		return TierHello
	}
}

// TierFor computes the tier from the join timestamp. Nothing is
// persisted; callers recompute on every query.
func TierFor(firstJoin, now time.Time) Tier {
	return TierForDays(DaysSince(firstJoin, now))
}
