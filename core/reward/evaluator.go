// Package reward evaluates achievement unlocks and membership tiers
// from a user's accumulated engagement counters. Everything in this
// package is pure: inputs in, sets out, no clocks and no storage.
package reward

import "time"

// Reward ids. These are persisted verbatim, so they never change.
const (
	FirstListen = "first_listen"
	FirstLike   = "first_like"
	FirstShare  = "first_share"
	Listens10   = "listens_10"
	Listens100  = "listens_100"
	Likes50     = "likes_50"
	Shares10    = "shares_10"
	Member30d   = "member_30d"
	Member100d  = "member_100d"
	NightOwl    = "night_owl"
	EarlyBird   = "early_bird"
	FullArchive = "full_archive"
)

// Counters is the evaluator input: a snapshot of one user's counters
// plus the catalog size at evaluation time. Independent subscriptions
// may deliver these at different moments; a transiently inconsistent
// snapshot just yields a transient result, and the next evaluation
// converges.
type Counters struct {
	ListenCount int64
	LikeCount   int64
	ShareCount  int64
	FirstJoin   time.Time
	CatalogSize int64
}

// Rule maps a reward id to its unlock predicate. Rules are independent
// of each other; the slice order only decides which of several
// simultaneously unlocked rewards gets celebrated first.
type Rule struct {
	ID       string
	Unlocked func(c Counters, now time.Time) bool
}

// Rules is the fixed rule table, evaluated independently per rule.
var Rules = []Rule{
	{FirstListen, func(c Counters, _ time.Time) bool { return c.ListenCount >= 1 }},
	{FirstLike, func(c Counters, _ time.Time) bool { return c.LikeCount >= 1 }},
	{FirstShare, func(c Counters, _ time.Time) bool { return c.ShareCount >= 1 }},
	{Listens10, func(c Counters, _ time.Time) bool { return c.ListenCount >= 10 }},
	{Listens100, func(c Counters, _ time.Time) bool { return c.ListenCount >= 100 }},
	{Likes50, func(c Counters, _ time.Time) bool { return c.LikeCount >= 50 }},
	{Shares10, func(c Counters, _ time.Time) bool { return c.ShareCount >= 10 }},
	{Member30d, func(c Counters, now time.Time) bool { return DaysSince(c.FirstJoin, now) >= 30 }},
	{Member100d, func(c Counters, now time.Time) bool { return DaysSince(c.FirstJoin, now) >= 100 }},
	{NightOwl, func(_ Counters, now time.Time) bool { h := now.Hour(); return h >= 2 && h <= 4 }},
	{EarlyBird, func(_ Counters, now time.Time) bool { h := now.Hour(); return h >= 6 && h <= 8 }},
	{FullArchive, func(c Counters, _ time.Time) bool { return c.CatalogSize > 0 && c.LikeCount >= c.CatalogSize }},
}

// Evaluate computes the full live unlocked set for the given counters
// and wall-clock time, in rule-table order. Time-window rules drop out
// of the live set when the window closes; persistence (rewards are
// never revoked) is the caller's concern, not the evaluator's.
func Evaluate(c Counters, now time.Time) []string {
	var unlocked []string
	for _, rule := range Rules {
		if rule.Unlocked(c, now) {
			unlocked = append(unlocked, rule.ID)
		}
	}
	return unlocked
}

// DaysSince returns whole days elapsed since firstJoin, floored.
func DaysSince(firstJoin, now time.Time) int64 {
	millis := now.UnixMilli() - firstJoin.UnixMilli()
	if millis < 0 {
		return 0
	}
	return millis / 86400000
}
