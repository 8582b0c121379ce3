package payload

import (
	"errors"
	"testing"
)

const taggedConfig = `
!ArenaConfig
randomizeArenas: true
arenas:
  -1: !Arena
    t: 250
    pass_mark: 2.5
    blackouts: [10, 20]
    items:
    - !Item
      name: Agent
      positions:
      - !Vector3 {x: 20, y: 0, z: 20}
      rotations: [90]
    - !Item
      name: GoodGoal
      colors:
      - !RGB {r: 255, g: 0, b: 0}
  2: !Arena
    t: 100
    random_seed: 42
    canResetEpisode: false
    items:
    - !Item
      name: Wall
  -1: !Arena
    t: 0
    items: []
`

func TestDecode_TaggedConfig(t *testing.T) {
	b, err := Decode([]byte(taggedConfig))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !b.RandomizeArenas {
		t.Error("expected randomizeArenas=true")
	}

	ids := b.IDs()
	want := []int{-1, 2, -1}
	if len(ids) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("entry %d: expected id %d, got %d", i, want[i], ids[i])
		}
	}

	first := b.Arenas[0].Arena
	if first.T != 250 || first.PassMark != 2.5 {
		t.Errorf("unexpected first arena: t=%d pass_mark=%f", first.T, first.PassMark)
	}
	if len(first.Blackouts) != 2 || first.Blackouts[1] != 20 {
		t.Errorf("unexpected blackouts: %v", first.Blackouts)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(first.Items))
	}
	agent := first.Items[0]
	if agent.Name != "Agent" || len(agent.Positions) != 1 || agent.Positions[0].X != 20 {
		t.Errorf("unexpected agent item: %+v", agent)
	}
	if agent.SpawnProbability != 1 {
		t.Errorf("expected default spawnProbability 1, got %f", agent.SpawnProbability)
	}
	if first.Items[1].Colors[0].R != 255 {
		t.Errorf("expected red color, got %+v", first.Items[1].Colors)
	}
	if !first.CanResetEpisode || !first.CanChangePerspective {
		t.Error("expected episode-control flags to default to true")
	}

	second := b.Arenas[1].Arena
	if second.RandomSeed != 42 {
		t.Errorf("expected seed 42, got %d", second.RandomSeed)
	}
	if second.CanResetEpisode {
		t.Error("expected canResetEpisode=false")
	}
}

func TestDecode_MissingArenas(t *testing.T) {
	_, err := Decode([]byte("randomizeArenas: false\n"))
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecode_EmptyDocument(t *testing.T) {
	_, err := Decode(nil)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecode_MissingT(t *testing.T) {
	_, err := Decode([]byte("arenas:\n  0:\n    items: []\n"))
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecode_MissingItemName(t *testing.T) {
	doc := `
arenas:
  0:
    t: 10
    items:
    - positions: [{x: 1, y: 0, z: 1}]
`
	_, err := Decode([]byte(doc))
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecode_NegativeT(t *testing.T) {
	_, err := Decode([]byte("arenas:\n  0:\n    t: -5\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecode_BadSyntax(t *testing.T) {
	_, err := Decode([]byte("arenas: [unterminated"))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecode_ArenasNotMapping(t *testing.T) {
	_, err := Decode([]byte("arenas: [1, 2]\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Arena{T: 10, Items: []Item{{Name: "Wall", SpawnProbability: 1}}}
	b := Arena{T: 10, Items: []Item{{Name: "Wall", SpawnProbability: 1}}}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal descriptors must share a fingerprint")
	}
	b.Items[0].Positions = []Vector3{{X: 1}}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different descriptors must not share a fingerprint")
	}
	c := Arena{T: 11, Items: a.Items}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different T must change the fingerprint")
	}
}

func TestFingerprint_StableAcrossDecodes(t *testing.T) {
	b1, err := Decode([]byte(taggedConfig))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b2, err := Decode([]byte(taggedConfig))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range b1.Arenas {
		if b1.Arenas[i].Arena.Fingerprint() != b2.Arenas[i].Arena.Fingerprint() {
			t.Errorf("entry %d: fingerprint changed between decodes", i)
		}
	}
}
