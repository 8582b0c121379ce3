package registry

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
)

// #region helpers

func quietRegistry() (*Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(log.New(&buf, "", 0)), &buf
}

func desc(t int, items ...string) payload.Arena {
	a := payload.Arena{T: t, CanResetEpisode: true, CanChangePerspective: true}
	for _, name := range items {
		a.Items = append(a.Items, payload.Item{Name: name, SpawnProbability: 1})
	}
	return a
}

func batch(randomize bool, entries ...payload.Entry) payload.Batch {
	return payload.Batch{Arenas: entries, RandomizeArenas: randomize}
}

// #endregion helpers

// #region add-tests

func TestAdd_InsertMakesCurrent(t *testing.T) {
	r, _ := quietRegistry()
	if err := r.Add(3, desc(10, "Wall")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	cur, ok := r.Resolve(CurrentID)
	if !ok {
		t.Fatal("expected current to resolve")
	}
	stored, _ := r.Resolve(3)
	if cur != stored {
		t.Fatal("current must be the object stored under its real id")
	}
	if _, id, _ := r.Current(); id != 3 {
		t.Errorf("expected current id 3, got %d", id)
	}
}

func TestAdd_SameFingerprintKeepsObject(t *testing.T) {
	r, _ := quietRegistry()
	r.Add(0, desc(10, "Wall"))
	first, _ := r.Resolve(0)
	first.MarkBuilt()

	r.Add(1, desc(20))
	if err := r.Add(0, desc(10, "Wall")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, _ := r.Resolve(0)
	if first != second {
		t.Fatal("unchanged descriptor must not replace the stored configuration")
	}
	if second.NeedsRebuild {
		t.Error("kept configuration must not be flagged for rebuild")
	}
	if cur, _ := r.Resolve(CurrentID); cur != first {
		t.Error("kept configuration must still become current")
	}
}

func TestAdd_ChangedFingerprintReplaces(t *testing.T) {
	r, _ := quietRegistry()
	r.Add(0, desc(10, "Wall"))
	first, _ := r.Resolve(0)
	first.MarkBuilt()

	r.Add(0, desc(10, "Wall", "GoodGoal"))
	second, _ := r.Resolve(0)
	if first == second {
		t.Fatal("changed descriptor must replace the configuration")
	}
	if !second.NeedsRebuild {
		t.Error("replacement must need a rebuild")
	}
	if len(second.Spawnables) != 2 {
		t.Errorf("expected full replacement with 2 spawnables, got %d", len(second.Spawnables))
	}
}

func TestAdd_NegativeID(t *testing.T) {
	r, _ := quietRegistry()
	if err := r.Add(-1, desc(10)); !errors.Is(err, ErrNegativeID) {
		t.Fatalf("expected ErrNegativeID, got %v", err)
	}
	if r.Len() != 0 {
		t.Error("registry must stay empty")
	}
}

func TestAdd_MalformedDescriptor(t *testing.T) {
	r, _ := quietRegistry()
	bad := desc(10)
	bad.Blackouts = []int{5, 2}
	if err := r.Add(0, bad); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

// #endregion add-tests

// #region reconcile-tests

func TestUpdateFromSource_NegativeRenumbering(t *testing.T) {
	r, logs := quietRegistry()
	a, b, c := desc(1, "A"), desc(2, "B"), desc(3, "C")
	rec, err := r.UpdateFromSource(batch(false,
		payload.Entry{ID: -1, Arena: a},
		payload.Entry{ID: -1, Arena: b},
		payload.Entry{ID: 2, Arena: c},
	))
	if err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}

	want := map[int]string{0: "A", 1: "B", 2: "C"}
	for id, name := range want {
		cfg, ok := r.Resolve(id)
		if !ok {
			t.Fatalf("expected id %d", id)
		}
		if cfg.Spawnables[0].Name != name {
			t.Errorf("id %d: expected %s, got %s", id, name, cfg.Spawnables[0].Name)
		}
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 arenas, got %d", r.Len())
	}
	if len(rec.Reassigned) != 2 || rec.Reassigned[0].To != 0 || rec.Reassigned[1].To != 1 {
		t.Errorf("unexpected reassignments: %+v", rec.Reassigned)
	}
	if !strings.Contains(logs.String(), "WARN: arena id -1 (entry 0) reassigned to 0") {
		t.Errorf("expected a warning for the rewrite, got %q", logs.String())
	}
}

func TestUpdateFromSource_StableOrder(t *testing.T) {
	r, _ := quietRegistry()
	rec, err := r.UpdateFromSource(batch(false,
		payload.Entry{ID: 3, Arena: desc(3)},
		payload.Entry{ID: -1, Arena: desc(11)},
		payload.Entry{ID: -2, Arena: desc(12)},
		payload.Entry{ID: 0, Arena: desc(0)},
	))
	if err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	// -2 sorts before -1, so it takes the first free id
	if cfg, _ := r.Resolve(1); cfg.T != 12 {
		t.Errorf("expected id 1 to hold the -2 entry, got T=%d", cfg.T)
	}
	if cfg, _ := r.Resolve(2); cfg.T != 11 {
		t.Errorf("expected id 2 to hold the -1 entry, got T=%d", cfg.T)
	}
	wantApplied := []int{1, 2, 0, 3}
	for i, id := range wantApplied {
		if rec.Applied[i] != id {
			t.Fatalf("applied order: expected %v, got %v", wantApplied, rec.Applied)
		}
	}
	if rec.CurrentID != 3 {
		t.Errorf("expected the last applied entry to be current, got %d", rec.CurrentID)
	}
}

func TestUpdateFromSource_DuplicateIDReassigned(t *testing.T) {
	r, _ := quietRegistry()
	rec, err := r.UpdateFromSource(batch(false,
		payload.Entry{ID: 0, Arena: desc(1)},
		payload.Entry{ID: 0, Arena: desc(2)},
		payload.Entry{ID: 1, Arena: desc(3)},
	))
	if err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 arenas, got %d", r.Len())
	}
	if cfg, _ := r.Resolve(2); cfg.T != 2 {
		t.Errorf("expected repeated id to move to 2, got T=%d", cfg.T)
	}
	if len(rec.Reassigned) != 1 || rec.Reassigned[0].From != 0 || rec.Reassigned[0].To != 2 {
		t.Errorf("unexpected reassignments: %+v", rec.Reassigned)
	}
}

func TestUpdateFromSource_Idempotent(t *testing.T) {
	r, _ := quietRegistry()
	b := batch(true,
		payload.Entry{ID: -1, Arena: desc(1, "A")},
		payload.Entry{ID: 4, Arena: desc(2, "B")},
		payload.Entry{ID: -1, Arena: desc(3, "C")},
	)

	first, err := r.UpdateFromSource(b)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	snapshot := map[int]interface{}{}
	for _, id := range r.IDs() {
		cfg, _ := r.Resolve(id)
		snapshot[id] = cfg
	}

	second, err := r.UpdateFromSource(b)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(first.Reassigned) != len(second.Reassigned) {
		t.Fatalf("reassignment count changed: %d vs %d", len(first.Reassigned), len(second.Reassigned))
	}
	for i := range first.Reassigned {
		if first.Reassigned[i] != second.Reassigned[i] {
			t.Errorf("reassignment %d changed: %+v vs %+v", i, first.Reassigned[i], second.Reassigned[i])
		}
	}
	ids := r.IDs()
	if len(ids) != len(snapshot) {
		t.Fatalf("id set changed: %v", ids)
	}
	for _, id := range ids {
		cfg, _ := r.Resolve(id)
		if snapshot[id] != interface{}(cfg) {
			t.Errorf("id %d: configuration object replaced on identical re-application", id)
		}
	}
	if second.Kept != 3 || second.Inserted != 0 {
		t.Errorf("expected all kept, got %+v", second)
	}
	if !r.RandomizeEpisodes() {
		t.Error("expected randomize policy from batch")
	}
}

func TestUpdateFromSource_AllOrNothing(t *testing.T) {
	r, _ := quietRegistry()
	if _, err := r.UpdateFromSource(batch(false, payload.Entry{ID: 0, Arena: desc(5)})); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	before, _ := r.Resolve(0)

	bad := desc(10)
	bad.Blackouts = []int{50}
	_, err := r.UpdateFromSource(batch(true,
		payload.Entry{ID: 0, Arena: desc(99)},
		payload.Entry{ID: 1, Arena: desc(7)},
		payload.Entry{ID: 2, Arena: bad},
	))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected registry unchanged, got %v", r.IDs())
	}
	after, _ := r.Resolve(0)
	if after != before {
		t.Error("entry 0 must not be replaced by a failed batch")
	}
	if r.RandomizeEpisodes() {
		t.Error("policy must not change on a failed batch")
	}
	if cur, _ := r.Resolve(CurrentID); cur != before {
		t.Error("current pointer must not move on a failed batch")
	}
}

func TestUpdateFromSource_EndToEndSparseIDs(t *testing.T) {
	r, _ := quietRegistry()
	seeded := desc(20)
	seeded.RandomSeed = 42
	if _, err := r.UpdateFromSource(batch(false,
		payload.Entry{ID: 1, Arena: desc(10)},
		payload.Entry{ID: 3, Arena: seeded},
	)); err != nil {
		t.Fatalf("UpdateFromSource: %v", err)
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("expected ids [1 3], got %v", ids)
	}
	if _, ok := r.Resolve(0); ok {
		t.Error("id 0 must be absent")
	}
	if r.MaxID() != 3 {
		t.Errorf("expected MaxID 3, got %d", r.MaxID())
	}
}

// #endregion reconcile-tests

// #region maintenance-tests

func TestAddAdditional(t *testing.T) {
	r, _ := quietRegistry()
	r.Add(0, desc(1))
	r.Add(5, desc(2))
	ids, err := r.AddAdditional(batch(false,
		payload.Entry{ID: 0, Arena: desc(3)},
		payload.Entry{ID: -4, Arena: desc(4)},
	))
	if err != nil {
		t.Fatalf("AddAdditional: %v", err)
	}
	if len(ids) != 2 || ids[0] != 6 || ids[1] != 7 {
		t.Fatalf("expected [6 7], got %v", ids)
	}
	if cfg, _ := r.Resolve(0); cfg.T != 1 {
		t.Error("AddAdditional must not touch existing ids")
	}
}

func TestMaxIDAndClear(t *testing.T) {
	r, _ := quietRegistry()
	if r.MaxID() != -1 {
		t.Errorf("expected -1 on empty registry, got %d", r.MaxID())
	}
	r.Add(2, desc(1))
	r.Add(7, desc(2))
	if r.MaxID() != 7 {
		t.Errorf("expected 7, got %d", r.MaxID())
	}

	r.Clear()
	if r.Len() != 0 || r.MaxID() != -1 {
		t.Error("Clear must empty the store")
	}
	if _, ok := r.Resolve(CurrentID); ok {
		t.Error("Clear must drop the current slot")
	}
}

func TestReplaceAll(t *testing.T) {
	r, logs := quietRegistry()
	r.UpdateFromSource(batch(false,
		payload.Entry{ID: 0, Arena: desc(5)},
		payload.Entry{ID: 1, Arena: desc(6)},
		payload.Entry{ID: 4, Arena: desc(7)},
	))
	kept, _ := r.Resolve(0)

	rec, err := r.ReplaceAll(batch(true, payload.Entry{ID: 0, Arena: desc(5)}))
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if fmt.Sprint(r.IDs()) != "[0]" || !r.RandomizeEpisodes() {
		t.Errorf("expected only arena 0 with randomize, got %v", r.IDs())
	}
	if cfg, _ := r.Resolve(0); cfg == kept {
		t.Error("a full reset must not keep configuration objects")
	}
	if rec.Inserted != 1 {
		t.Errorf("expected 1 insert, got %+v", rec)
	}
	if !strings.Contains(logs.String(), "cleared 3 arenas") {
		t.Errorf("expected clear to be logged, got %q", logs.String())
	}
}

func TestReplaceAll_RejectsWithoutClearing(t *testing.T) {
	r, _ := quietRegistry()
	r.UpdateFromSource(batch(false, payload.Entry{ID: 0, Arena: desc(5)}, payload.Entry{ID: 1, Arena: desc(6)}))

	bad := desc(10)
	bad.Blackouts = []int{50}
	if _, err := r.ReplaceAll(batch(false, payload.Entry{ID: 0, Arena: desc(3)}, payload.Entry{ID: 1, Arena: bad})); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if _, err := r.ReplaceAll(batch(false)); !IsMalformed(err) {
		t.Fatalf("expected empty batch to be malformed, got %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("registry must be unchanged, got %v", r.IDs())
	}
	if cfg, _ := r.Resolve(0); cfg.T != 5 {
		t.Error("entry 0 must not change on a rejected reset")
	}
}

// #endregion maintenance-tests

func TestIsMalformed(t *testing.T) {
	if !IsMalformed(fmt.Errorf("decode: %w", payload.ErrMalformed)) {
		t.Error("decode errors are malformed")
	}
	if !IsMalformed(fmt.Errorf("update: %w", ErrMalformedPayload)) {
		t.Error("registry build errors are malformed")
	}
	if IsMalformed(errors.New("disk full")) {
		t.Error("unrelated errors are not malformed")
	}
}
