package arena

import "github.com/danielpatrickdp/arena-controller/go-controller/internal/lights"

// #region vectors

// Vector3 is a position, size or RGB color triple.
type Vector3 struct {
	X, Y, Z float32
}

// #endregion vectors

// #region spawnable

// Spawnable describes one placeable item and its randomizable parameters.
// Empty placement lists mean "randomize at spawn time". Behavior lists, when
// non-empty, are expected to match the placement-list length; the builder
// enforces that, not this package.
type Spawnable struct {
	Name string

	Positions []Vector3
	Rotations []float32
	Sizes     []Vector3
	Colors    []Vector3

	Skins                 []string
	SymbolNames           []string
	Delays                []float32
	InitialValues         []float32
	FinalValues           []float32
	ChangeRates           []float32
	SpawnCounts           []int
	SpawnColors           []Vector3
	TimesBetweenSpawns    []float32
	RipenTimes            []float32
	DoorDelays            []float32
	TimesBetweenDoorOpens []float32
	FrozenAgentDelays     []float32
	MoveDurations         []float32
	ResetDurations        []float32

	SpawnProbability float32
	RewardNames      []string
	RewardWeights    []float32
	RewardSpawnPos   Vector3
	MaxRewardCounts  []int
}

// #endregion spawnable

// #region configuration

// Configuration is the full parameter set of one episode.
type Configuration struct {
	T          int // episode step budget in agent decisions; 0 resets immediately
	Spawnables []*Spawnable
	Lights     *lights.Switch
	Blackouts  []int
	PassMark   float32
	RandomSeed int

	ShowNotification     bool
	CanResetEpisode      bool
	CanChangePerspective bool
	DefaultPerspective   int

	// Fingerprint identifies the descriptor this configuration was built from.
	Fingerprint string

	// NeedsRebuild is set on creation and cleared once the builder consumed it.
	NeedsRebuild bool

	unbound []string
}

// Presentation is the read-only view handed to the episode presentation layer.
type Presentation struct {
	ShowNotification     bool    `json:"show_notification"`
	CanResetEpisode      bool    `json:"can_reset_episode"`
	CanChangePerspective bool    `json:"can_change_perspective"`
	DefaultPerspective   int     `json:"default_perspective"`
	PassMark             float32 `json:"pass_mark"`
}

// #endregion configuration
