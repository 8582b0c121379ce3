package logging

import (
	"database/sql"
	"testing"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/episode"
	_ "modernc.org/sqlite"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE episode_log (
		episode_id TEXT PRIMARY KEY,
		version_id TEXT,
		episode    INTEGER NOT NULL,
		arena_id   INTEGER NOT NULL,
		reason     TEXT NOT NULL,
		seed       INTEGER,
		t          INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

// #endregion helpers

// #region log-episode-tests
func TestLogEpisode_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := EpisodeEntry{
		EpisodeID: "e1",
		VersionID: "v1",
		Episode:   3,
		ArenaID:   2,
		Reason:    "sequential",
		Seed:      42,
		T:         250,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogEpisode(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM episode_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var arenaID, seed int
	var reason string
	db.QueryRow("SELECT arena_id, reason, seed FROM episode_log").Scan(&arenaID, &reason, &seed)
	if arenaID != 2 || reason != "sequential" || seed != 42 {
		t.Errorf("unexpected row: arena=%d reason=%q seed=%d", arenaID, reason, seed)
	}
}

func TestLogEpisode_Defaults(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogEpisode(db, EpisodeEntry{ArenaID: 0, Reason: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var episodeID, createdAtStr string
	var versionID sql.NullString
	var seed sql.NullInt64
	db.QueryRow("SELECT episode_id, version_id, seed, created_at FROM episode_log").Scan(
		&episodeID, &versionID, &seed, &createdAtStr,
	)
	if episodeID == "" {
		t.Error("expected generated episode_id")
	}
	if versionID.Valid {
		t.Error("expected NULL version_id for empty string")
	}
	if seed.Valid {
		t.Error("expected NULL seed when unseeded")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogEpisode_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogEpisode(db, EpisodeEntry{Reason: "first"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-episode-tests

// #region recent-tests
func TestRecentEpisodes_NewestFirst(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	for i := 1; i <= 3; i++ {
		if err := LogEpisode(db, EpisodeEntry{Episode: i, ArenaID: i - 1, Reason: "sequential"}); err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	entries, err := RecentEpisodes(db, 2)
	if err != nil {
		t.Fatalf("RecentEpisodes: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Episode != 3 || entries[1].Episode != 2 {
		t.Errorf("expected episodes 3,2; got %d,%d", entries[0].Episode, entries[1].Episode)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be parsed")
	}
}

// #endregion recent-tests

// #region journal-tests
func TestJournal_RecordEpisode(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	j := NewJournal(db)
	j.SetBatch("batch-1")

	sel := episode.Selection{
		EpisodeID: "ep-1",
		Episode:   1,
		ArenaID:   4,
		Reason:    episode.ReasonFirst,
		Seeded:    true,
		Seed:      7,
		T:         100,
	}
	if err := j.RecordEpisode(sel); err != nil {
		t.Fatalf("RecordEpisode: %v", err)
	}
	j.SetBatch("batch-2")
	if err := j.RecordEpisode(episode.Selection{EpisodeID: "ep-2", Episode: 2, ArenaID: 5, Reason: episode.ReasonRandom, Seed: 9}); err != nil {
		t.Fatalf("RecordEpisode: %v", err)
	}

	entries, err := RecentEpisodes(db, 10)
	if err != nil {
		t.Fatalf("RecentEpisodes: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[1]
	if first.VersionID != "batch-1" || first.ArenaID != 4 || first.Seed != 7 || first.T != 100 {
		t.Errorf("unexpected first entry: %+v", first)
	}
	second := entries[0]
	if second.VersionID != "batch-2" || second.Reason != "random" {
		t.Errorf("unexpected second entry: %+v", second)
	}
	if second.Seed != 0 {
		t.Errorf("unseeded selection must not record a seed, got %d", second.Seed)
	}
}

// #endregion journal-tests

// #region null-helper-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("hello") != "hello" {
		t.Error("expected 'hello'")
	}
}

func TestNullIfZero(t *testing.T) {
	if nullIfZero(0) != nil {
		t.Error("expected nil for zero")
	}
	if nullIfZero(5) != 5 {
		t.Error("expected 5")
	}
}

// #endregion null-helper-tests
