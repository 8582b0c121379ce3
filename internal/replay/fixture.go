package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description      string         `json:"description"`
	Seed             int64          `json:"seed"`
	DecisionInterval int            `json:"decision_interval"`
	Batches          []FixtureBatch `json:"batches"`
	ExpectedIDs      []int          `json:"expected_ids"`
	// ExpectedError names the fatal condition the run must stop on:
	// "empty_registry" or "no_fallback". Empty means the run must succeed.
	ExpectedError string `json:"expected_error,omitempty"`
}

// FixtureBatch is one configuration message followed by a number of episode
// resets.
type FixtureBatch struct {
	YAML   string `json:"yaml"`
	Mode   string `json:"mode,omitempty"` // "replace" (default) | "append" | "clear"
	Resets int    `json:"resets"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, b := range f.Batches {
		switch b.Mode {
		case "", history.ModeReplace, history.ModeAppend, history.ModeClear:
		default:
			return nil, fmt.Errorf("parse fixture %s: batches[%d]: unknown mode %q", path, i, b.Mode)
		}
	}
	return &f, nil
}

// #endregion fixture-loader
