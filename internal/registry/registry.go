package registry

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/arena"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
)

// #region errors

// CurrentID is the reserved key that resolves to the configuration in force.
const CurrentID = -1

// ErrMalformedPayload wraps descriptor failures that prevent building a configuration.
var ErrMalformedPayload = errors.New("malformed arena configuration")

// ErrNegativeID is returned by Add for ids that were not reconciled first.
var ErrNegativeID = errors.New("negative arena id")

// IsMalformed reports whether err was caused by the content of a
// configuration message rather than by the receiver.
func IsMalformed(err error) bool {
	return errors.Is(err, payload.ErrMalformed) || errors.Is(err, ErrMalformedPayload)
}

// #endregion errors

// #region types

// Reassignment records one id rewritten during reconciliation.
type Reassignment struct {
	From     int
	To       int
	Position int // index of the entry in the batch, document order
}

// Reconciliation summarizes one UpdateFromSource call.
type Reconciliation struct {
	Applied    []int // final ids in application order
	Reassigned []Reassignment
	Randomize  bool
	CurrentID  int
	Inserted   int
	Replaced   int
	Kept       int
}

// Registry is the keyed store of arena configurations owned by one simulation.
// It is not safe for concurrent use; the owner serializes access.
type Registry struct {
	configs   map[int]*arena.Configuration
	current   *arena.Configuration
	currentID int
	randomize bool
	logger    *log.Logger
}

// #endregion types

// #region constructor

// New creates an empty registry. A nil logger uses log.Default().
func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		configs:   make(map[int]*arena.Configuration),
		currentID: CurrentID,
		logger:    logger,
	}
}

// #endregion constructor

// #region add

type addOutcome int

const (
	outcomeInserted addOutcome = iota
	outcomeReplaced
	outcomeKept
)

// Add stores a configuration built from d under id and makes it current.
// An existing entry with the same fingerprint is kept as is, so builder state
// attached to it survives.
func (r *Registry) Add(id int, d payload.Arena) error {
	if id < 0 {
		return fmt.Errorf("add arena %d: %w", id, ErrNegativeID)
	}
	if existing, ok := r.configs[id]; ok && existing.Fingerprint == d.Fingerprint() {
		r.setCurrent(id, existing)
		return nil
	}
	cfg, err := arena.FromDescriptor(d)
	if err != nil {
		return fmt.Errorf("add arena %d: %w: %w", id, ErrMalformedPayload, err)
	}
	r.put(id, cfg)
	return nil
}

func (r *Registry) put(id int, cfg *arena.Configuration) addOutcome {
	outcome := outcomeInserted
	if existing, ok := r.configs[id]; ok {
		if existing.Fingerprint == cfg.Fingerprint {
			r.setCurrent(id, existing)
			return outcomeKept
		}
		outcome = outcomeReplaced
	}
	r.configs[id] = cfg
	r.setCurrent(id, cfg)
	return outcome
}

func (r *Registry) setCurrent(id int, cfg *arena.Configuration) {
	r.current = cfg
	r.currentID = id
}

// #endregion add

// #region update-from-source

type staged struct {
	id       int
	position int
	cfg      *arena.Configuration
}

// UpdateFromSource reconciles a whole batch. Negative ids, and repeats of an id
// earlier in the batch, are rewritten to the lowest free non-negative id.
// Entries are applied in ascending original id, document order among ties.
// Every descriptor is built before the store is touched, so a malformed batch
// leaves the registry unchanged.
func (r *Registry) UpdateFromSource(b payload.Batch) (Reconciliation, error) {
	order := make([]int, len(b.Arenas))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return b.Arenas[order[i]].ID < b.Arenas[order[j]].ID
	})

	used := make(map[int]bool, len(b.Arenas))
	for _, e := range b.Arenas {
		if e.ID >= 0 {
			used[e.ID] = true
		}
	}

	rec := Reconciliation{Randomize: b.RandomizeArenas}
	plan := make([]staged, 0, len(order))
	claimed := make(map[int]bool, len(order))
	next := 0
	for _, pos := range order {
		e := b.Arenas[pos]
		id := e.ID
		// negative ids and repeats of an id already claimed in this batch
		if id < 0 || claimed[id] {
			for used[next] {
				next++
			}
			id = next
			used[id] = true
			rec.Reassigned = append(rec.Reassigned, Reassignment{From: e.ID, To: id, Position: pos})
		}
		claimed[id] = true
		cfg, err := r.stage(id, e.Arena)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("update from source: arena %d (entry %d): %w", e.ID, pos, err)
		}
		plan = append(plan, staged{id: id, position: pos, cfg: cfg})
	}

	for _, ra := range rec.Reassigned {
		r.logger.Printf("[REGISTRY] WARN: arena id %d (entry %d) reassigned to %d", ra.From, ra.Position, ra.To)
	}
	for _, s := range plan {
		switch r.put(s.id, s.cfg) {
		case outcomeInserted:
			rec.Inserted++
		case outcomeReplaced:
			rec.Replaced++
		case outcomeKept:
			rec.Kept++
		}
		rec.Applied = append(rec.Applied, s.id)
	}
	r.randomize = b.RandomizeArenas
	rec.CurrentID = r.currentID

	r.logger.Printf("[REGISTRY] applied %d arenas (inserted=%d replaced=%d kept=%d) randomize=%v current=%d",
		len(plan), rec.Inserted, rec.Replaced, rec.Kept, r.randomize, r.currentID)
	return rec, nil
}

// stage builds the configuration an entry would store, reusing the existing
// object when its fingerprint is unchanged.
func (r *Registry) stage(id int, d payload.Arena) (*arena.Configuration, error) {
	if existing, ok := r.configs[id]; ok && existing.Fingerprint == d.Fingerprint() {
		return existing, nil
	}
	cfg, err := arena.FromDescriptor(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return cfg, nil
}

// AddAdditional appends every entry of the batch after the stored arenas,
// ignoring the ids the batch carries. All-or-nothing like UpdateFromSource.
func (r *Registry) AddAdditional(b payload.Batch) ([]int, error) {
	built := make([]*arena.Configuration, len(b.Arenas))
	for i, e := range b.Arenas {
		cfg, err := arena.FromDescriptor(e.Arena)
		if err != nil {
			return nil, fmt.Errorf("add additional: entry %d: %w: %w", i, ErrMalformedPayload, err)
		}
		built[i] = cfg
	}
	ids := make([]int, 0, len(built))
	for _, cfg := range built {
		id := r.MaxID() + 1
		r.put(id, cfg)
		ids = append(ids, id)
	}
	return ids, nil
}

// ReplaceAll is a full environment reset: the store is cleared and refilled
// from the batch, so no configuration object survives. The batch must hold at
// least one arena, and a malformed batch leaves the registry unchanged.
func (r *Registry) ReplaceAll(b payload.Batch) (Reconciliation, error) {
	if len(b.Arenas) == 0 {
		return Reconciliation{}, fmt.Errorf("replace all: %w: no arenas", ErrMalformedPayload)
	}
	for i, e := range b.Arenas {
		if _, err := arena.FromDescriptor(e.Arena); err != nil {
			return Reconciliation{}, fmt.Errorf("replace all: entry %d: %w: %w", i, ErrMalformedPayload, err)
		}
	}
	dropped := len(r.configs)
	r.Clear()
	rec, err := r.UpdateFromSource(b)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("replace all: %w", err)
	}
	r.logger.Printf("[REGISTRY] cleared %d arenas before reload", dropped)
	return rec, nil
}

// #endregion update-from-source

// #region lookup

// Resolve looks up a configuration. CurrentID resolves to the configuration in force.
func (r *Registry) Resolve(id int) (*arena.Configuration, bool) {
	if id == CurrentID {
		return r.current, r.current != nil
	}
	cfg, ok := r.configs[id]
	return cfg, ok
}

// Current returns the configuration in force and its real id.
func (r *Registry) Current() (*arena.Configuration, int, bool) {
	if r.current == nil {
		return nil, CurrentID, false
	}
	return r.current, r.currentID, true
}

// MaxID returns the highest stored id, or -1 if the registry is empty.
func (r *Registry) MaxID() int {
	maxID := -1
	for id := range r.configs {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}

// Len returns the number of stored configurations, excluding the current slot.
func (r *Registry) Len() int {
	return len(r.configs)
}

// IDs returns the stored ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RandomizeEpisodes reports the episode selection policy set by the last batch.
func (r *Registry) RandomizeEpisodes() bool {
	return r.randomize
}

// #endregion lookup

// #region maintenance

// Clear empties the store and the current slot.
func (r *Registry) Clear() {
	r.configs = make(map[int]*arena.Configuration)
	r.current = nil
	r.currentID = CurrentID
}

// #endregion maintenance
