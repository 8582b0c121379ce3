package replay

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/episode"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/random"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/registry"
)

// #region types

// Result captures the outcome of replaying a fixture.
type Result struct {
	Selections []episode.Selection
	Builds     int
	Reassigned []registry.Reassignment
	Err        error // fatal reset error that stopped the run
}

// IDs returns the selected arena id of every completed reset.
func (r Result) IDs() []int {
	ids := make([]int, len(r.Selections))
	for i, s := range r.Selections {
		ids[i] = s.ArenaID
	}
	return ids
}

// Mismatch is one difference between a replay and its fixture.
type Mismatch struct {
	Index    int
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("expected %s, got %s", m.Expected, m.Actual)
	}
	return fmt.Sprintf("reset %d: expected %s, got %s", m.Index, m.Expected, m.Actual)
}

type recordingBuilder struct {
	builds int
}

func (b *recordingBuilder) SetSpawnables([]*arena.Spawnable) {}

func (b *recordingBuilder) Build() error {
	b.builds++
	return nil
}

// #endregion types

// #region replay

// Run replays a fixture through a fresh registry and controller. Malformed
// batches and unknown modes are returned as errors; fatal reset conditions
// stop the run and are reported in Result.Err.
func Run(f *Fixture, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	reg := registry.New(logger)
	builder := &recordingBuilder{}
	ctrl, err := episode.NewController(episode.Deps{
		Registry:         reg,
		Builder:          builder,
		Rand:             random.New(seedOrDefault(f.Seed)),
		Logger:           logger,
		DecisionInterval: f.DecisionInterval,
	})
	if err != nil {
		return Result{}, fmt.Errorf("replay: %w", err)
	}

	var res Result
	for i, fb := range f.Batches {
		b, err := payload.Decode([]byte(fb.YAML))
		if err != nil {
			return res, fmt.Errorf("replay batch %d: %w", i, err)
		}
		switch fb.Mode {
		case "", history.ModeReplace:
			rec, err := reg.UpdateFromSource(b)
			if err != nil {
				return res, fmt.Errorf("replay batch %d: %w", i, err)
			}
			res.Reassigned = append(res.Reassigned, rec.Reassigned...)
		case history.ModeAppend:
			if _, err := reg.AddAdditional(b); err != nil {
				return res, fmt.Errorf("replay batch %d: %w", i, err)
			}
		case history.ModeClear:
			rec, err := reg.ReplaceAll(b)
			if err != nil {
				return res, fmt.Errorf("replay batch %d: %w", i, err)
			}
			res.Reassigned = append(res.Reassigned, rec.Reassigned...)
		default:
			return res, fmt.Errorf("replay batch %d: unknown mode %q", i, fb.Mode)
		}

		for n := 0; n < fb.Resets; n++ {
			sel, err := ctrl.Reset()
			if err != nil {
				res.Err = err
				res.Builds = builder.builds
				return res, nil
			}
			res.Selections = append(res.Selections, sel)
		}
	}
	res.Builds = builder.builds
	return res, nil
}

// Compare lists every difference between a result and the fixture's
// expectations.
func Compare(f *Fixture, res Result) []Mismatch {
	var out []Mismatch
	ids := res.IDs()
	n := len(ids)
	if len(f.ExpectedIDs) > n {
		n = len(f.ExpectedIDs)
	}
	for i := 0; i < n; i++ {
		exp, act := "none", "none"
		if i < len(f.ExpectedIDs) {
			exp = fmt.Sprintf("arena %d", f.ExpectedIDs[i])
		}
		if i < len(ids) {
			act = fmt.Sprintf("arena %d", ids[i])
		}
		if exp != act {
			out = append(out, Mismatch{Index: i, Expected: exp, Actual: act})
		}
	}

	if got := errorName(res.Err); got != f.ExpectedError {
		out = append(out, Mismatch{Index: -1, Expected: quoteOrNone(f.ExpectedError), Actual: quoteOrNone(got)})
	}
	return out
}

// #endregion replay

// #region helpers

// seedOrDefault keeps fixtures deterministic when they omit a seed.
func seedOrDefault(seed int64) int64 {
	if seed == 0 {
		return 1
	}
	return seed
}

func errorName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, episode.ErrEmptyRegistry):
		return "empty_registry"
	case errors.Is(err, episode.ErrNoFallback):
		return "no_fallback"
	}
	return err.Error()
}

func quoteOrNone(s string) string {
	if s == "" {
		return "no error"
	}
	return fmt.Sprintf("error %q", s)
}

// #endregion helpers
