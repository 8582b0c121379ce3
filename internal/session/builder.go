package session

import (
	"fmt"
	"log"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
)

// Drawer supplies the uniform draws a builder uses for spawn probabilities.
// *random.Source satisfies it.
type Drawer interface {
	Float64() float64
}

// SpawnReporter is a builder that names the objects its last Build placed.
// The session hands them to the controller, which destroys them at the next
// reset.
type SpawnReporter interface {
	Spawned() []string
}

// LogBuilder stands in for a scene builder when the controller runs headless.
// It rolls each spawnable against its spawn probability, logs what would be
// placed and destroyed, and reports a handle per placed object.
type LogBuilder struct {
	Logger *log.Logger
	// Rand draws spawn probabilities. Nil places every object.
	Rand Drawer

	spawnables []*arena.Spawnable
	handles    []string
	seq        int
}

// SetSpawnables implements episode.Builder.
func (b *LogBuilder) SetSpawnables(spawnables []*arena.Spawnable) {
	b.spawnables = spawnables
}

// Build implements episode.Builder.
func (b *LogBuilder) Build() error {
	b.handles = b.handles[:0]
	counts := make(map[string]int, len(b.spawnables))
	for _, sp := range b.spawnables {
		n := len(sp.Positions)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			if b.Rand != nil && b.Rand.Float64() >= float64(sp.SpawnProbability) {
				continue
			}
			b.seq++
			b.handles = append(b.handles, fmt.Sprintf("%s-%d", sp.Name, b.seq))
			counts[sp.Name]++
		}
	}
	b.logger().Printf("[SESSION] build: %d spawnables, placed %v", len(b.spawnables), counts)
	return nil
}

// Spawned implements SpawnReporter.
func (b *LogBuilder) Spawned() []string {
	return append([]string(nil), b.handles...)
}

// Destroy implements episode.Despawner.
func (b *LogBuilder) Destroy(handles []string) {
	b.logger().Printf("[SESSION] destroy: %d spawned objects", len(handles))
}

func (b *LogBuilder) logger() *log.Logger {
	if b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}
