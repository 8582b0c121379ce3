package replay

import (
	"fmt"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
)

// VersionSource looks up stored batches. *history.Store satisfies it.
type VersionSource interface {
	GetVersion(id string) (history.Version, error)
	Chain(id string) ([]history.Version, error)
}

// #region export

// FixtureFromJournal rebuilds a fixture from journal entries of one run, in
// chronological order. The ancestors of the first batch are replayed without
// resets so the registry matches the one that was live. Each later run of
// consecutive episodes under the same batch version becomes one batch whose
// resets are those episodes.
func FixtureFromJournal(src VersionSource, episodes []logging.EpisodeEntry, seed int64, decisionInterval int) (*Fixture, error) {
	f := &Fixture{
		Description:      fmt.Sprintf("exported from %d journal entries", len(episodes)),
		Seed:             seed,
		DecisionInterval: decisionInterval,
		ExpectedIDs:      make([]int, 0, len(episodes)),
	}
	lastVersion := ""
	for i, e := range episodes {
		if e.VersionID == "" {
			return nil, fmt.Errorf("export fixture: episode %d has no batch version", i)
		}
		if i > 0 && e.Episode <= episodes[i-1].Episode {
			return nil, fmt.Errorf("export fixture: episode numbering restarts at entry %d, export a single run", i)
		}
		if e.VersionID != lastVersion {
			var versions []history.Version
			if lastVersion == "" {
				chain, err := src.Chain(e.VersionID)
				if err != nil {
					return nil, fmt.Errorf("export fixture: %w", err)
				}
				versions = chain
			} else {
				v, err := src.GetVersion(e.VersionID)
				if err != nil {
					return nil, fmt.Errorf("export fixture: %w", err)
				}
				if v.ParentID != lastVersion {
					return nil, fmt.Errorf("export fixture: batch %s does not follow %s", v.VersionID, lastVersion)
				}
				versions = []history.Version{v}
			}
			for _, v := range versions {
				f.Batches = append(f.Batches, FixtureBatch{YAML: string(v.Payload), Mode: v.Mode})
			}
			lastVersion = e.VersionID
		}
		f.Batches[len(f.Batches)-1].Resets++
		f.ExpectedIDs = append(f.ExpectedIDs, e.ArenaID)
	}
	return f, nil
}

// #endregion export
