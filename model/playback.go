package model

// PlaybackSnapshot is the ephemeral per-session playback state as
// reported by a client session. It is never written to MySQL; the
// events hub caches the latest snapshot per user in Redis so a
// reconnecting session can resume where it left off.
type PlaybackSnapshot struct {
	TrackIndex      int     `json:"trackIndex"`
	TrackID         int64   `json:"trackId"`
	IsPlaying       bool    `json:"isPlaying"`
	PositionSeconds float64 `json:"positionSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	Volume          float64 `json:"volume"`
	Muted           bool    `json:"muted"`
	Buffering       bool    `json:"buffering"`
	UpdatedAt       int64   `json:"updatedAt"` // epoch millis
}
