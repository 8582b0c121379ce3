package logging

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/episode"
	"github.com/google/uuid"
)

// #region log-episode
// LogEpisode writes an entry to the episode_log table.
func LogEpisode(db *sql.DB, entry EpisodeEntry) error {
	if entry.EpisodeID == "" {
		entry.EpisodeID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO episode_log (episode_id, version_id, episode, arena_id, reason, seed, t, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EpisodeID,
		nullIfEmpty(entry.VersionID),
		entry.Episode,
		entry.ArenaID,
		entry.Reason,
		nullIfZero(entry.Seed),
		entry.T,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log episode: %w", err)
	}
	return nil
}

// #endregion log-episode

// #region recent-episodes
// RecentEpisodes returns up to limit journal rows, newest first.
func RecentEpisodes(db *sql.DB, limit int) ([]EpisodeEntry, error) {
	rows, err := db.Query(
		`SELECT episode_id, version_id, episode, arena_id, reason, seed, t, created_at
		 FROM episode_log ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer rows.Close()

	var entries []EpisodeEntry
	for rows.Next() {
		var e EpisodeEntry
		var versionID sql.NullString
		var seed sql.NullInt64
		var createdStr string
		if err := rows.Scan(&e.EpisodeID, &versionID, &e.Episode, &e.ArenaID, &e.Reason, &seed, &e.T, &createdStr); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		e.VersionID = versionID.String
		e.Seed = int(seed.Int64)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion recent-episodes

// #region journal
// Journal records controller resets into episode_log, tagged with the batch
// version that was active at the time.
type Journal struct {
	db *sql.DB

	mu        sync.Mutex
	versionID string
}

// NewJournal returns a journal writing to db.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// SetBatch sets the batch version attached to subsequent episodes.
func (j *Journal) SetBatch(versionID string) {
	j.mu.Lock()
	j.versionID = versionID
	j.mu.Unlock()
}

// RecordEpisode implements episode.Journal.
func (j *Journal) RecordEpisode(sel episode.Selection) error {
	j.mu.Lock()
	versionID := j.versionID
	j.mu.Unlock()

	entry := EpisodeEntry{
		EpisodeID: sel.EpisodeID,
		VersionID: versionID,
		Episode:   sel.Episode,
		ArenaID:   sel.ArenaID,
		Reason:    string(sel.Reason),
		T:         sel.T,
	}
	if sel.Seeded {
		entry.Seed = sel.Seed
	}
	return LogEpisode(j.db, entry)
}

// #endregion journal

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

// #endregion helpers
