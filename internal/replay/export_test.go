package replay

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
)

func TestFixtureFromJournal_RoundTrip(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	v1, _ := store.Commit([]byte("arenas:\n  0:\n    t: 5\n  1:\n    t: 5\n  2:\n    t: 5\n"), "grpc", history.ModeReplace, 3)
	v2, _ := store.Commit([]byte("arenas:\n  0:\n    t: 6\n"), "grpc", history.ModeReplace, 1)

	journal := []logging.EpisodeEntry{
		{VersionID: v1.VersionID, Episode: 1, ArenaID: 0},
		{VersionID: v1.VersionID, Episode: 2, ArenaID: 1},
		{VersionID: v2.VersionID, Episode: 3, ArenaID: 2},
		{VersionID: v2.VersionID, Episode: 4, ArenaID: 0},
	}
	f, err := FixtureFromJournal(store, journal, 1, 5)
	if err != nil {
		t.Fatalf("FixtureFromJournal: %v", err)
	}
	if len(f.Batches) != 2 || f.Batches[0].Resets != 2 || f.Batches[1].Resets != 2 {
		t.Fatalf("unexpected batches: %+v", f.Batches)
	}

	res, err := Run(f, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ms := Compare(f, res); len(ms) != 0 {
		t.Errorf("exported fixture does not replay: %v", ms)
	}
}

func TestFixtureFromJournal_AncestorsAndAppendMode(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	v1, _ := store.Commit([]byte("arenas:\n  0:\n    t: 5\n  1:\n    t: 5\n"), "grpc", history.ModeReplace, 2)
	v2, _ := store.Commit([]byte("arenas:\n  0:\n    t: 5\n"), "http", history.ModeAppend, 1)

	// The journal range starts after v1 was already superseded.
	journal := []logging.EpisodeEntry{
		{VersionID: v2.VersionID, Episode: 7, ArenaID: 0},
		{VersionID: v2.VersionID, Episode: 8, ArenaID: 1},
		{VersionID: v2.VersionID, Episode: 9, ArenaID: 2},
	}
	f, err := FixtureFromJournal(store, journal, 1, 5)
	if err != nil {
		t.Fatalf("FixtureFromJournal: %v", err)
	}
	if len(f.Batches) != 2 {
		t.Fatalf("expected ancestor plus active batch, got %+v", f.Batches)
	}
	if f.Batches[0].Resets != 0 || f.Batches[0].Mode != history.ModeReplace {
		t.Errorf("ancestor batch must replay without resets, got %+v", f.Batches[0])
	}
	if f.Batches[1].Mode != history.ModeAppend || f.Batches[1].Resets != 3 {
		t.Errorf("expected append batch with 3 resets, got %+v", f.Batches[1])
	}
	if v1.VersionID == v2.VersionID {
		t.Fatal("expected distinct versions")
	}

	res, err := Run(f, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ms := Compare(f, res); len(ms) != 0 {
		t.Errorf("exported fixture does not replay: %v", ms)
	}
}

func TestFixtureFromJournal_RejectsRestartedRun(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	v, _ := store.Commit([]byte("arenas:\n  0:\n    t: 5\n"), "grpc", history.ModeReplace, 1)
	journal := []logging.EpisodeEntry{
		{VersionID: v.VersionID, Episode: 2, ArenaID: 0},
		{VersionID: v.VersionID, Episode: 1, ArenaID: 0},
	}
	if _, err := FixtureFromJournal(store, journal, 1, 5); err == nil {
		t.Error("expected error when episode numbering restarts")
	}
}

func TestFixtureFromJournal_MissingVersion(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if _, err := FixtureFromJournal(store, []logging.EpisodeEntry{{VersionID: "gone"}}, 1, 1); err == nil {
		t.Error("expected error for unknown version")
	}
	if _, err := FixtureFromJournal(store, []logging.EpisodeEntry{{ArenaID: 0}}, 1, 1); err == nil {
		t.Error("expected error for untagged episode")
	}
}
