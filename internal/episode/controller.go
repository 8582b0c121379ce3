package episode

import (
	"fmt"
	"log"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
	"github.com/google/uuid"
)

// #region controller-struct

// Controller decides which arena configuration runs at each episode boundary.
type Controller struct {
	reg       Registry
	builder   Builder
	rng       Rand
	journal   Journal
	despawner Despawner
	logger    *log.Logger
	interval  int
	templates []string

	state    State
	activeID int
	active   *arena.Configuration
	episode  int
	lightOn  bool
	spawned  []string
}

// #endregion controller-struct

// #region constructor

// NewController wires a controller. Registry, Builder and Rand are required.
func NewController(deps Deps) (*Controller, error) {
	if deps.Registry == nil || deps.Builder == nil || deps.Rand == nil {
		return nil, fmt.Errorf("new controller: registry, builder and rand are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	interval := deps.DecisionInterval
	if interval <= 0 {
		interval = 1
	}
	return &Controller{
		reg:       deps.Registry,
		builder:   deps.Builder,
		rng:       deps.Rand,
		journal:   deps.Journal,
		despawner: deps.Despawner,
		logger:    logger,
		interval:  interval,
		templates: deps.Templates,
		state:     AwaitingFirstReset,
		activeID:  -1,
		lightOn:   true,
	}, nil
}

// #endregion constructor

// #region reset

// Reset ends the current episode and activates the next arena. On error the
// controller keeps its previous state and active configuration. The shared
// randomness source is not rolled back: a seeded arena whose build fails has
// already reseeded it, since seeding must precede the build.
func (c *Controller) Reset() (Selection, error) {
	maxID := c.reg.MaxID()
	if maxID < 0 {
		return Selection{}, fmt.Errorf("reset: %w", ErrEmptyRegistry)
	}

	var (
		id     int
		reason Reason
		err    error
	)
	switch {
	case c.state == AwaitingFirstReset:
		id, reason = c.firstID(maxID)
	case c.reg.RandomizeEpisodes():
		id, reason = c.randomID(maxID)
	default:
		id, err = c.sequentialID(maxID)
		if err != nil {
			return Selection{}, err
		}
		reason = ReasonSequential
	}

	cfg, ok := c.reg.Resolve(id)
	if !ok {
		c.logger.Printf("[EPISODE] WARN: arena %d does not resolve, falling back to arena 0", id)
		id, reason = 0, ReasonFallback
		cfg, ok = c.reg.Resolve(0)
		if !ok {
			return Selection{}, fmt.Errorf("reset: %w", ErrNoFallback)
		}
	}

	return c.activate(id, reason, cfg)
}

func (c *Controller) firstID(maxID int) (int, Reason) {
	if c.reg.RandomizeEpisodes() {
		return c.rng.Intn(maxID + 1), ReasonFirst
	}
	return 0, ReasonFirst
}

func (c *Controller) randomID(maxID int) (int, Reason) {
	candidates := make([]int, 0, maxID+1)
	for i := 0; i <= maxID; i++ {
		if i == c.activeID {
			continue
		}
		if _, ok := c.reg.Resolve(i); ok {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		c.logger.Printf("[EPISODE] WARN: no arena other than %d resolves, keeping it", c.activeID)
		return c.activeID, ReasonKept
	}
	return candidates[c.rng.Intn(len(candidates))], ReasonRandom
}

// sequentialID advances modulo MaxID()+1 until an id resolves. The scan is
// bounded by one full cycle.
func (c *Controller) sequentialID(maxID int) (int, error) {
	id := c.activeID
	for i := 0; i <= maxID; i++ {
		id = (id + 1) % (maxID + 1)
		if id < 0 {
			id = 0
		}
		if _, ok := c.reg.Resolve(id); ok {
			return id, nil
		}
	}
	return 0, fmt.Errorf("reset: sequential scan over %d ids: %w", maxID+1, ErrEmptyRegistry)
}

func (c *Controller) activate(id int, reason Reason, cfg *arena.Configuration) (Selection, error) {
	seeded := cfg.RandomSeed != 0
	if seeded {
		c.rng.Seed(int64(cfg.RandomSeed))
	}

	if len(c.templates) > 0 {
		cfg.BindTemplates(c.templates)
		for _, name := range cfg.Unbound() {
			c.logger.Printf("[EPISODE] WARN: arena %d spawnable %q matches no known template", id, name)
		}
	}

	needed := cfg.NeedsRebuild
	cfg.MarkBuilt()
	c.builder.SetSpawnables(cfg.Spawnables)
	if err := c.builder.Build(); err != nil {
		cfg.NeedsRebuild = needed
		return Selection{}, fmt.Errorf("reset: arena %d: %w: %w", id, ErrBuild, err)
	}
	cfg.Lights.Reset()

	if len(c.spawned) > 0 && c.despawner != nil {
		c.despawner.Destroy(c.spawned)
	}
	c.spawned = c.spawned[:0]

	c.state = Cycling
	c.activeID = id
	c.active = cfg
	c.lightOn = true
	c.episode++

	sel := Selection{
		EpisodeID: uuid.New().String(),
		Episode:   c.episode,
		ArenaID:   id,
		Reason:    reason,
		Seeded:    seeded,
		Seed:      cfg.RandomSeed,
		T:         cfg.T,
	}
	c.logger.Printf("[EPISODE] episode=%d arena=%d reason=%s T=%d seeded=%v",
		sel.Episode, sel.ArenaID, sel.Reason, sel.T, sel.Seeded)

	if c.journal != nil {
		if err := c.journal.RecordEpisode(sel); err != nil {
			c.logger.Printf("[EPISODE] failed to record episode %s: %v", sel.EpisodeID, err)
		}
	}
	return sel, nil
}

// #endregion reset

// #region per-step

// TrackSpawned takes ownership of an object spawned during the running
// episode. It is destroyed at the next successful reset.
func (c *Controller) TrackSpawned(handle string) {
	c.spawned = append(c.spawned, handle)
}

// Spawned returns the handles tracked for the running episode.
func (c *Controller) Spawned() []string {
	return append([]string(nil), c.spawned...)
}

// UpdateLights evaluates the active light schedule at the given agent step.
// changed is true when the status differs from the previous call.
func (c *Controller) UpdateLights(step int) (on, changed bool) {
	if c.active == nil {
		return true, false
	}
	on = c.active.Lights.LightStatus(step, c.interval)
	changed = on != c.lightOn
	c.lightOn = on
	return on, changed
}

// EpisodeOver reports whether the step count reached the active time limit.
func (c *Controller) EpisodeOver(step int) bool {
	if c.active == nil {
		return false
	}
	return step >= c.active.TimeLimit(c.interval)
}

// #endregion per-step

// #region accessors

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Active returns the configuration of the running episode, or nil before the first reset.
func (c *Controller) Active() *arena.Configuration { return c.active }

// ActiveID returns the arena id of the running episode, -1 before the first reset.
func (c *Controller) ActiveID() int { return c.activeID }

// Episode returns the number of completed resets.
func (c *Controller) Episode() int { return c.episode }

// TimeLimit returns the active episode length in agent steps.
func (c *Controller) TimeLimit() int {
	if c.active == nil {
		return 0
	}
	return c.active.TimeLimit(c.interval)
}

// Presentation returns the flags of the running episode for the presentation layer.
func (c *Controller) Presentation() arena.Presentation {
	if c.active == nil {
		return arena.Presentation{CanResetEpisode: true, CanChangePerspective: true}
	}
	return c.active.Presentation()
}

// #endregion accessors
