package reward

import (
	"testing"
	"time"
)

func TestTierForDays(t *testing.T) {
	cases := []struct {
		days int64
		want Tier
	}{
		{0, TierHello},
		{6, TierHello},
		{7, TierFriend},
		{29, TierFriend},
		{30, TierRegular},
		{99, TierRegular},
		{100, TierFamily},
		{400, TierFamily},
	}
	for _, tc := range cases {
		if got := TierForDays(tc.days); got != tc.want {
			t.Errorf("days %d: expected %s, got %s", tc.days, tc.want, got)
		}
	}
}

func TestTierFor(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("partial day stays in the lower band", func(t *testing.T) {
		join := now.AddDate(0, 0, -7).Add(time.Hour)
		if got := TierFor(join, now); got != TierHello {
			t.Errorf("expected Hello just under 7 days, got %s", got)
		}
	})

	t.Run("exact boundary promotes", func(t *testing.T) {
		join := now.AddDate(0, 0, -100)
		if got := TierFor(join, now); got != TierFamily {
			t.Errorf("expected Family at 100 days, got %s", got)
		}
	})
}
