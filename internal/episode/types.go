package episode

import (
	"errors"
	"log"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
)

// #region errors

// ErrEmptyRegistry means cycling started before any configuration was stored.
var ErrEmptyRegistry = errors.New("no arena configurations to cycle")

// ErrNoFallback means neither the selected arena nor arena 0 resolved.
var ErrNoFallback = errors.New("fallback arena 0 does not resolve")

// ErrBuild wraps a builder failure; the previous episode stays active.
var ErrBuild = errors.New("arena build failed")

// #endregion errors

// #region state

// State is the position of the controller in the episode lifecycle.
type State string

const (
	AwaitingFirstReset State = "awaiting_first_reset"
	Cycling            State = "cycling"
)

// Reason says how an arena id was chosen.
type Reason string

const (
	ReasonFirst      Reason = "first"
	ReasonRandom     Reason = "random"
	ReasonSequential Reason = "sequential"
	ReasonKept       Reason = "kept"
	ReasonFallback   Reason = "fallback"
)

// Selection describes one completed episode reset.
type Selection struct {
	EpisodeID string
	Episode   int
	ArenaID   int
	Reason    Reason
	Seeded    bool
	Seed      int
	T         int
}

// #endregion state

// #region collaborators

// Registry is the read side of the configuration registry.
type Registry interface {
	Resolve(id int) (*arena.Configuration, bool)
	MaxID() int
	RandomizeEpisodes() bool
}

// Builder places the spawnables of the active configuration.
type Builder interface {
	SetSpawnables(spawnables []*arena.Spawnable)
	Build() error
}

// Despawner removes objects that were spawned during the previous episode.
type Despawner interface {
	Destroy(handles []string)
}

// Rand is the shared randomness source.
type Rand interface {
	Seed(seed int64)
	Intn(n int) int
}

// Journal records completed resets.
type Journal interface {
	RecordEpisode(sel Selection) error
}

// Deps are the collaborators injected into a Controller. Journal, Despawner
// and Logger are optional.
type Deps struct {
	Registry  Registry
	Builder   Builder
	Rand      Rand
	Journal   Journal
	Despawner Despawner
	Logger    *log.Logger

	// DecisionInterval is the number of steps between agent decisions.
	DecisionInterval int
	// Templates lists the placeable templates the builder knows about.
	Templates []string
}

// #endregion collaborators
