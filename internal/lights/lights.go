package lights

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSchedule marks a blackout list that cannot describe a schedule.
var ErrInvalidSchedule = errors.New("invalid light schedule")

// #region switch

// Switch evaluates a deterministic lights on/off schedule for one arena.
//
// Blackout markers are expressed in agent decisions. An explicit list
// [10, 20, 35] turns the lights off at 10, on at 20 and off again at 35.
// A single negative marker [-k] flips the lights every k decisions.
type Switch struct {
	budget   int
	markers  []int
	interval int // >0 in periodic mode

	// cursor caches progress for non-decreasing step queries
	cursor       int
	lastStep     int
	lastInterval int
}

// New validates the blackout list against the episode step budget.
func New(episodeStepBudget int, blackouts []int) (*Switch, error) {
	if episodeStepBudget < 0 {
		return nil, fmt.Errorf("%w: negative step budget %d", ErrInvalidSchedule, episodeStepBudget)
	}
	s := &Switch{budget: episodeStepBudget}

	if len(blackouts) == 1 && blackouts[0] < 0 {
		s.interval = -blackouts[0]
		s.Reset()
		return s, nil
	}

	prev := -1
	for i, m := range blackouts {
		if m < 0 {
			return nil, fmt.Errorf("%w: marker %d is negative in a list of %d", ErrInvalidSchedule, m, len(blackouts))
		}
		if m <= prev {
			return nil, fmt.Errorf("%w: markers must be strictly increasing (index %d: %d after %d)", ErrInvalidSchedule, i, m, prev)
		}
		if episodeStepBudget > 0 && m >= episodeStepBudget {
			return nil, fmt.Errorf("%w: marker %d outside episode of %d steps", ErrInvalidSchedule, m, episodeStepBudget)
		}
		prev = m
	}
	s.markers = append([]int(nil), blackouts...)
	s.Reset()
	return s, nil
}

// #endregion switch

// #region evaluate

// LightStatus reports whether the lights are on at the given agent step count.
// decisionInterval converts blackout markers into step counts.
func (s *Switch) LightStatus(step, decisionInterval int) bool {
	if s == nil {
		return true
	}
	if decisionInterval <= 0 {
		decisionInterval = 1
	}
	if s.interval > 0 {
		return s.periodicFlips(step, decisionInterval)%2 == 0
	}
	if len(s.markers) == 0 {
		return true
	}

	if step < s.lastStep || decisionInterval != s.lastInterval {
		s.cursor = sort.Search(len(s.markers), func(i int) bool {
			return s.markers[i]*decisionInterval > step
		})
	} else {
		for s.cursor < len(s.markers) && s.markers[s.cursor]*decisionInterval <= step {
			s.cursor++
		}
	}
	s.lastStep = step
	s.lastInterval = decisionInterval
	return s.cursor%2 == 0
}

func (s *Switch) periodicFlips(step, decisionInterval int) int {
	if step < 0 {
		return 0
	}
	flips := step / (s.interval * decisionInterval)
	if s.budget > 0 {
		// only markers strictly inside the episode count
		limit := (s.budget - 1) / s.interval
		if flips > limit {
			flips = limit
		}
	}
	return flips
}

// Reset rearms the switch for a new episode.
func (s *Switch) Reset() {
	if s == nil {
		return
	}
	s.cursor = 0
	s.lastStep = 0
	s.lastInterval = 0
}

// #endregion evaluate

// #region accessors

// Budget returns the episode step budget the schedule was validated against.
func (s *Switch) Budget() int {
	if s == nil {
		return 0
	}
	return s.budget
}

// Blackouts returns a copy of the configured markers, in the form they were given.
func (s *Switch) Blackouts() []int {
	if s == nil {
		return nil
	}
	if s.interval > 0 {
		return []int{-s.interval}
	}
	return append([]int(nil), s.markers...)
}

// #endregion accessors
