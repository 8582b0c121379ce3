package arena

import (
	"fmt"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/lights"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
)

// #region constructors

// FromDescriptor builds a configuration from a decoded arena descriptor.
func FromDescriptor(d payload.Arena) (*Configuration, error) {
	sw, err := lights.New(d.T, d.Blackouts)
	if err != nil {
		return nil, fmt.Errorf("build light schedule: %w", err)
	}
	c := &Configuration{
		T:                    d.T,
		Spawnables:           make([]*Spawnable, 0, len(d.Items)),
		Lights:               sw,
		Blackouts:            append([]int(nil), d.Blackouts...),
		PassMark:             d.PassMark,
		RandomSeed:           d.RandomSeed,
		ShowNotification:     d.ShowNotification,
		CanResetEpisode:      d.CanResetEpisode,
		CanChangePerspective: d.CanChangePerspective,
		DefaultPerspective:   d.DefaultPerspective,
		Fingerprint:          d.Fingerprint(),
		NeedsRebuild:         true,
	}
	for _, item := range d.Items {
		c.Spawnables = append(c.Spawnables, spawnableFromItem(item))
	}
	return c, nil
}

func spawnableFromItem(it payload.Item) *Spawnable {
	return &Spawnable{
		Name:                  it.Name,
		Positions:             vectors(it.Positions),
		Rotations:             it.Rotations,
		Sizes:                 vectors(it.Sizes),
		Colors:                colors(it.Colors),
		Skins:                 it.Skins,
		SymbolNames:           it.SymbolNames,
		Delays:                it.Delays,
		InitialValues:         it.InitialValues,
		FinalValues:           it.FinalValues,
		ChangeRates:           it.ChangeRates,
		SpawnCounts:           it.SpawnCounts,
		SpawnColors:           colors(it.SpawnColors),
		TimesBetweenSpawns:    it.TimesBetweenSpawns,
		RipenTimes:            it.RipenTimes,
		DoorDelays:            it.DoorDelays,
		TimesBetweenDoorOpens: it.TimesBetweenDoorOpens,
		FrozenAgentDelays:     it.FrozenAgentDelays,
		MoveDurations:         it.MoveDurations,
		ResetDurations:        it.ResetDurations,
		SpawnProbability:      it.SpawnProbability,
		RewardNames:           it.RewardNames,
		RewardWeights:         it.RewardWeights,
		RewardSpawnPos:        Vector3{X: it.RewardSpawnPos.X, Y: it.RewardSpawnPos.Y, Z: it.RewardSpawnPos.Z},
		MaxRewardCounts:       it.MaxRewardCounts,
	}
}

func vectors(in []payload.Vector3) []Vector3 {
	out := make([]Vector3, len(in))
	for i, v := range in {
		out[i] = Vector3{X: v.X, Y: v.Y, Z: v.Z}
	}
	return out
}

func colors(in []payload.RGB) []Vector3 {
	out := make([]Vector3, len(in))
	for i, c := range in {
		out[i] = Vector3{X: c.R, Y: c.G, Z: c.B}
	}
	return out
}

// #endregion constructors

// #region episode-parameters

// MarkBuilt clears the one-shot rebuild flag after the builder consumed the configuration.
func (c *Configuration) MarkBuilt() {
	c.NeedsRebuild = false
}

// TimeLimit converts the step budget into agent steps.
func (c *Configuration) TimeLimit(decisionInterval int) int {
	if decisionInterval <= 0 {
		decisionInterval = 1
	}
	return c.T * decisionInterval
}

// Presentation returns the flags the presentation layer may read.
func (c *Configuration) Presentation() Presentation {
	return Presentation{
		ShowNotification:     c.ShowNotification,
		CanResetEpisode:      c.CanResetEpisode,
		CanChangePerspective: c.CanChangePerspective,
		DefaultPerspective:   c.DefaultPerspective,
		PassMark:             c.PassMark,
	}
}

// #endregion episode-parameters

// #region templates

// BindTemplates checks every spawnable name against the known templates and
// remembers the ones that match nothing.
func (c *Configuration) BindTemplates(known []string) {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	c.unbound = c.unbound[:0]
	for _, s := range c.Spawnables {
		if !set[s.Name] {
			c.unbound = append(c.unbound, s.Name)
		}
	}
}

// Unbound lists spawnable names the last BindTemplates call could not match.
func (c *Configuration) Unbound() []string {
	return append([]string(nil), c.unbound...)
}

// #endregion templates
