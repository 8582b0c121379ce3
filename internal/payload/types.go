package payload

// #region vectors

// Vector3 is a position, size, or spawn offset as written in arena YAML: {x, y, z}.
type Vector3 struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

// RGB is a color triple as written in arena YAML: {r, g, b}.
type RGB struct {
	R float32 `yaml:"r"`
	G float32 `yaml:"g"`
	B float32 `yaml:"b"`
}

// #endregion vectors

// #region item

// Item describes one spawnable entry of an arena. Empty placement lists mean
// "randomize at spawn time"; the builder owns that contract.
type Item struct {
	Name      string    `yaml:"name"`
	Positions []Vector3 `yaml:"positions,omitempty"`
	Rotations []float32 `yaml:"rotations,omitempty"`
	Sizes     []Vector3 `yaml:"sizes,omitempty"`
	Colors    []RGB     `yaml:"colors,omitempty"`

	Skins                 []string  `yaml:"skins,omitempty"`
	SymbolNames           []string  `yaml:"symbolNames,omitempty"`
	Delays                []float32 `yaml:"delays,omitempty"`
	InitialValues         []float32 `yaml:"initialValues,omitempty"`
	FinalValues           []float32 `yaml:"finalValues,omitempty"`
	ChangeRates           []float32 `yaml:"changeRates,omitempty"`
	SpawnCounts           []int     `yaml:"spawnCounts,omitempty"`
	SpawnColors           []RGB     `yaml:"spawnColors,omitempty"`
	TimesBetweenSpawns    []float32 `yaml:"timesBetweenSpawns,omitempty"`
	RipenTimes            []float32 `yaml:"ripenTimes,omitempty"`
	DoorDelays            []float32 `yaml:"doorDelays,omitempty"`
	TimesBetweenDoorOpens []float32 `yaml:"timesBetweenDoorOpens,omitempty"`
	FrozenAgentDelays     []float32 `yaml:"frozenAgentDelays,omitempty"`
	MoveDurations         []float32 `yaml:"moveDurations,omitempty"`
	ResetDurations        []float32 `yaml:"resetDurations,omitempty"`

	SpawnProbability float32   `yaml:"spawnProbability"`
	RewardNames      []string  `yaml:"rewardNames,omitempty"`
	RewardWeights    []float32 `yaml:"rewardWeights,omitempty"`
	RewardSpawnPos   Vector3   `yaml:"rewardSpawnPos"`
	MaxRewardCounts  []int     `yaml:"maxRewardCounts,omitempty"`
}

// #endregion item

// #region arena

// Arena is the declarative descriptor of one episode configuration.
type Arena struct {
	T                    int     `yaml:"t"`
	PassMark             float32 `yaml:"pass_mark"`
	Blackouts            []int   `yaml:"blackouts,omitempty"`
	RandomSeed           int     `yaml:"random_seed"`
	Items                []Item  `yaml:"items"`
	ShowNotification     bool    `yaml:"showNotification"`
	CanResetEpisode      bool    `yaml:"canResetEpisode"`
	CanChangePerspective bool    `yaml:"canChangePerspective"`
	DefaultPerspective   int     `yaml:"defaultPerspective"`
}

// #endregion arena

// #region batch

// Entry pairs an arena descriptor with the id the trainer supplied for it.
// Negative ids mean "assign automatically".
type Entry struct {
	ID    int
	Arena Arena
}

// Batch is one decoded configuration message. Entries keep document order;
// duplicate negative ids are legal.
type Batch struct {
	Arenas          []Entry
	RandomizeArenas bool
}

// IDs returns the entry ids in document order.
func (b Batch) IDs() []int {
	ids := make([]int, len(b.Arenas))
	for i, e := range b.Arenas {
		ids[i] = e.ID
	}
	return ids
}

// #endregion batch
