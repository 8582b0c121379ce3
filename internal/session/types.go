package session

import (
	"errors"
	"log"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/episode"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
)

// ErrStopped is returned by requests made after Run has exited.
var ErrStopped = errors.New("session stopped")

// #region collaborators

// Store records accepted batches. *history.Store satisfies it.
type Store interface {
	Commit(payload []byte, source, mode string, arenaCount int) (history.Version, error)
}

// BatchTagger is told which batch version is in force. *logging.Journal
// satisfies it.
type BatchTagger interface {
	SetBatch(versionID string)
}

// Options configure a Session. Builder and Rand are required.
type Options struct {
	Builder   episode.Builder
	Rand      episode.Rand
	Despawner episode.Despawner
	Journal   episode.Journal
	Store     Store
	Logger    *log.Logger

	DecisionInterval int
	Templates        []string

	// StepInterval drives the step clock when Ticks is nil.
	StepInterval time.Duration
	// Ticks overrides the step clock.
	Ticks <-chan time.Time
}

// #endregion collaborators

// #region view

// View is a snapshot of the session taken on the loop goroutine.
type View struct {
	IDs          []int              `json:"ids"`
	CurrentID    int                `json:"current_id"` // last configuration stored
	Randomize    bool               `json:"randomize"`
	State        episode.State      `json:"state"`
	ActiveID     int                `json:"active_id"` // arena of the running episode
	Episode      int                `json:"episode"`
	Step         int                `json:"step"`
	TimeLimit    int                `json:"time_limit"`
	T            int                `json:"t"`
	LightsOn     bool               `json:"lights_on"`
	Blackouts    []int              `json:"blackouts"`
	Presentation arena.Presentation `json:"presentation"` // includes the pass mark
	Spawned      []string           `json:"spawned"`
	VersionID    string             `json:"version_id"`
}

// #endregion view

// #region requests

type request struct {
	data   []byte
	source string
	mode   string // history.ModeReplace | history.ModeAppend | history.ModeClear
	chain  []history.Version
	reply  chan result
}

type result struct {
	versionID string
	err       error
}

// #endregion requests
