package logging

import "time"

// #region episode-entry
// EpisodeEntry is a single row in the episode_log table.
type EpisodeEntry struct {
	EpisodeID string    `json:"episode_id"`
	VersionID string    `json:"version_id"` // batch that was active when the episode started
	Episode   int       `json:"episode"`
	ArenaID   int       `json:"arena_id"`
	Reason    string    `json:"reason"` // "first" | "random" | "sequential" | "kept" | "fallback"
	Seed      int       `json:"seed"`   // 0 when the arena does not reseed
	T         int       `json:"t"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion episode-entry
