package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region errors

// ErrMalformed wraps every structural decoding failure.
var ErrMalformed = errors.New("malformed arena payload")

// ErrMissingField marks a descriptor that omits a required key.
var ErrMissingField = errors.New("missing required field")

// #endregion errors

// #region raw-types

type rawConfig struct {
	Arenas          *arenaSet `yaml:"arenas"`
	RandomizeArenas bool      `yaml:"randomizeArenas"`
}

type rawEntry struct {
	id    int
	arena rawArena
}

type arenaSet []rawEntry

// UnmarshalYAML walks the mapping by hand so that document order survives
// and repeated negative keys are not rejected as duplicates.
func (s *arenaSet) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("arenas must be a mapping (line %d)", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		var id int
		if err := n.Content[i].Decode(&id); err != nil {
			return fmt.Errorf("arena key %q (line %d): %w", n.Content[i].Value, n.Content[i].Line, err)
		}
		var a rawArena
		if err := n.Content[i+1].Decode(&a); err != nil {
			return fmt.Errorf("arenas[%d]: %w", id, err)
		}
		*s = append(*s, rawEntry{id: id, arena: a})
	}
	return nil
}

type rawArena struct {
	T                    *int      `yaml:"t"`
	PassMark             float32   `yaml:"pass_mark"`
	Blackouts            []int     `yaml:"blackouts"`
	RandomSeed           int       `yaml:"random_seed"`
	Items                []rawItem `yaml:"items"`
	ShowNotification     bool      `yaml:"showNotification"`
	CanResetEpisode      *bool     `yaml:"canResetEpisode"`
	CanChangePerspective *bool     `yaml:"canChangePerspective"`
	DefaultPerspective   int       `yaml:"defaultPerspective"`
}

type rawItem struct {
	Name      *string   `yaml:"name"`
	Positions []Vector3 `yaml:"positions"`
	Rotations []float32 `yaml:"rotations"`
	Sizes     []Vector3 `yaml:"sizes"`
	Colors    []RGB     `yaml:"colors"`

	Skins                 []string  `yaml:"skins"`
	SymbolNames           []string  `yaml:"symbolNames"`
	Delays                []float32 `yaml:"delays"`
	InitialValues         []float32 `yaml:"initialValues"`
	FinalValues           []float32 `yaml:"finalValues"`
	ChangeRates           []float32 `yaml:"changeRates"`
	SpawnCounts           []int     `yaml:"spawnCounts"`
	SpawnColors           []RGB     `yaml:"spawnColors"`
	TimesBetweenSpawns    []float32 `yaml:"timesBetweenSpawns"`
	RipenTimes            []float32 `yaml:"ripenTimes"`
	DoorDelays            []float32 `yaml:"doorDelays"`
	TimesBetweenDoorOpens []float32 `yaml:"timesBetweenDoorOpens"`
	FrozenAgentDelays     []float32 `yaml:"frozenAgentDelays"`
	MoveDurations         []float32 `yaml:"moveDurations"`
	ResetDurations        []float32 `yaml:"resetDurations"`

	SpawnProbability *float32  `yaml:"spawnProbability"`
	RewardNames      []string  `yaml:"rewardNames"`
	RewardWeights    []float32 `yaml:"rewardWeights"`
	RewardSpawnPos   Vector3   `yaml:"rewardSpawnPos"`
	MaxRewardCounts  []int     `yaml:"maxRewardCounts"`
}

// #endregion raw-types

// #region decode

// Decode parses one arena configuration message. Local tags such as
// !ArenaConfig, !Arena, !Item, !Vector3 and !RGB are accepted and ignored.
func Decode(data []byte) (Batch, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Batch{}, fmt.Errorf("%w: parse yaml: %w", ErrMalformed, err)
	}
	if root.Kind == 0 {
		return Batch{}, fmt.Errorf("%w: %w: arenas", ErrMalformed, ErrMissingField)
	}
	stripLocalTags(&root)

	var raw rawConfig
	if err := root.Decode(&raw); err != nil {
		return Batch{}, fmt.Errorf("%w: decode arena config: %w", ErrMalformed, err)
	}
	if raw.Arenas == nil {
		return Batch{}, fmt.Errorf("%w: %w: arenas", ErrMalformed, ErrMissingField)
	}

	batch := Batch{
		Arenas:          make([]Entry, 0, len(*raw.Arenas)),
		RandomizeArenas: raw.RandomizeArenas,
	}
	for _, re := range *raw.Arenas {
		a, err := re.arena.toArena(re.id)
		if err != nil {
			return Batch{}, err
		}
		batch.Arenas = append(batch.Arenas, Entry{ID: re.id, Arena: a})
	}
	return batch, nil
}

func (r rawArena) toArena(id int) (Arena, error) {
	if r.T == nil {
		return Arena{}, fmt.Errorf("%w: %w: arenas[%d].t", ErrMalformed, ErrMissingField, id)
	}
	a := Arena{
		T:                    *r.T,
		PassMark:             r.PassMark,
		Blackouts:            r.Blackouts,
		RandomSeed:           r.RandomSeed,
		ShowNotification:     r.ShowNotification,
		CanResetEpisode:      true,
		CanChangePerspective: true,
		DefaultPerspective:   r.DefaultPerspective,
	}
	if a.T < 0 {
		return Arena{}, fmt.Errorf("%w: arenas[%d].t must be non-negative, got %d", ErrMalformed, id, a.T)
	}
	if r.CanResetEpisode != nil {
		a.CanResetEpisode = *r.CanResetEpisode
	}
	if r.CanChangePerspective != nil {
		a.CanChangePerspective = *r.CanChangePerspective
	}
	a.Items = make([]Item, 0, len(r.Items))
	for j, ri := range r.Items {
		if ri.Name == nil || *ri.Name == "" {
			return Arena{}, fmt.Errorf("%w: %w: arenas[%d].items[%d].name", ErrMalformed, ErrMissingField, id, j)
		}
		a.Items = append(a.Items, ri.toItem())
	}
	return a, nil
}

func (r rawItem) toItem() Item {
	it := Item{
		Name:                  *r.Name,
		Positions:             r.Positions,
		Rotations:             r.Rotations,
		Sizes:                 r.Sizes,
		Colors:                r.Colors,
		Skins:                 r.Skins,
		SymbolNames:           r.SymbolNames,
		Delays:                r.Delays,
		InitialValues:         r.InitialValues,
		FinalValues:           r.FinalValues,
		ChangeRates:           r.ChangeRates,
		SpawnCounts:           r.SpawnCounts,
		SpawnColors:           r.SpawnColors,
		TimesBetweenSpawns:    r.TimesBetweenSpawns,
		RipenTimes:            r.RipenTimes,
		DoorDelays:            r.DoorDelays,
		TimesBetweenDoorOpens: r.TimesBetweenDoorOpens,
		FrozenAgentDelays:     r.FrozenAgentDelays,
		MoveDurations:         r.MoveDurations,
		ResetDurations:        r.ResetDurations,
		SpawnProbability:      1,
		RewardNames:           r.RewardNames,
		RewardWeights:         r.RewardWeights,
		RewardSpawnPos:        r.RewardSpawnPos,
		MaxRewardCounts:       r.MaxRewardCounts,
	}
	if r.SpawnProbability != nil {
		it.SpawnProbability = *r.SpawnProbability
	}
	return it
}

// stripLocalTags clears application tags (!Arena, !Vector3, ...) so the
// nodes resolve as plain mappings and scalars. Core tags (!!int) stay.
func stripLocalTags(n *yaml.Node) {
	if strings.HasPrefix(n.Tag, "!") && !strings.HasPrefix(n.Tag, "!!") {
		n.Tag = ""
	}
	for _, c := range n.Content {
		stripLocalTags(c)
	}
}

// #endregion decode

// #region fingerprint

// Fingerprint identifies the content of a descriptor. Two descriptors with the
// same fingerprint build identical configurations.
func (a Arena) Fingerprint() string {
	canonical, err := yaml.Marshal(a)
	if err != nil {
		// Arena holds only plain data; Marshal cannot fail on it.
		canonical = []byte(fmt.Sprintf("%#v", a))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// #endregion fingerprint
