package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/episode"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/registry"
)

// #region session-struct

// Session is one simulation instance: a registry, the controller cycling over
// it, and the step clock. All state is owned by the Run goroutine; other
// goroutines reach it through the request methods and Snapshot.
type Session struct {
	reg      *registry.Registry
	ctrl     *episode.Controller
	reporter SpawnReporter
	store    Store
	tagger   BatchTagger
	logger   *log.Logger

	stepInterval time.Duration
	ticks        <-chan time.Time

	requests chan request
	queries  chan func()
	done     chan struct{}

	step      int
	lightsOn  bool
	versionID string
}

// #endregion session-struct

// #region constructor

// New wires a session. Call Run to start it.
func New(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Ticks == nil && opts.StepInterval <= 0 {
		return nil, fmt.Errorf("new session: step interval must be positive")
	}
	reg := registry.New(logger)
	ctrl, err := episode.NewController(episode.Deps{
		Registry:         reg,
		Builder:          opts.Builder,
		Rand:             opts.Rand,
		Journal:          opts.Journal,
		Despawner:        opts.Despawner,
		Logger:           logger,
		DecisionInterval: opts.DecisionInterval,
		Templates:        opts.Templates,
	})
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	s := &Session{
		reg:          reg,
		ctrl:         ctrl,
		store:        opts.Store,
		logger:       logger,
		stepInterval: opts.StepInterval,
		ticks:        opts.Ticks,
		requests:     make(chan request),
		queries:      make(chan func()),
		done:         make(chan struct{}),
		lightsOn:     true,
	}
	if t, ok := opts.Journal.(BatchTagger); ok {
		s.tagger = t
	}
	if r, ok := opts.Builder.(SpawnReporter); ok {
		s.reporter = r
	}
	return s, nil
}

// #endregion constructor

// #region run

// Run drives the session until ctx is cancelled or the controller hits a
// fatal condition.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.stepInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.requests:
			versionID, err := s.apply(req)
			req.reply <- result{versionID: versionID, err: err}
		case fn := <-s.queries:
			fn()
		case <-ticks:
			if err := s.tick(); err != nil {
				return err
			}
		}
	}
}

func (s *Session) tick() error {
	switch s.ctrl.State() {
	case episode.AwaitingFirstReset:
		if s.reg.Len() == 0 {
			return nil
		}
		return s.reset()
	case episode.Cycling:
		s.step++
		on, changed := s.ctrl.UpdateLights(s.step)
		s.lightsOn = on
		if changed {
			s.logger.Printf("[SESSION] episode=%d step=%d lights=%s", s.ctrl.Episode(), s.step, onOff(on))
		}
		if s.ctrl.EpisodeOver(s.step) {
			return s.reset()
		}
	}
	return nil
}

// reset starts the next episode. Build failures keep the running episode and
// are retried on the next tick; other errors end the session.
func (s *Session) reset() error {
	_, err := s.ctrl.Reset()
	if err == nil {
		s.step = 0
		s.lightsOn = true
		if s.reporter != nil {
			for _, h := range s.reporter.Spawned() {
				s.ctrl.TrackSpawned(h)
			}
		}
		return nil
	}
	if errors.Is(err, episode.ErrBuild) {
		s.logger.Printf("[SESSION] WARN: %v", err)
		return nil
	}
	return fmt.Errorf("session reset: %w", err)
}

// #endregion run

// #region apply

func (s *Session) apply(req request) (string, error) {
	var versionID string
	if req.chain != nil {
		for _, v := range req.chain {
			if _, err := s.reconcile(v.Payload, v.Source, v.Mode); err != nil {
				return "", fmt.Errorf("restore batch %s: %w", v.VersionID, err)
			}
		}
		versionID = req.chain[len(req.chain)-1].VersionID
	} else {
		n, err := s.reconcile(req.data, req.source, req.mode)
		if err != nil {
			return "", err
		}
		if s.store != nil {
			v, err := s.store.Commit(req.data, req.source, req.mode, n)
			if err != nil {
				return "", fmt.Errorf("commit batch (applied, not recorded): %w", err)
			}
			versionID = v.VersionID
		}
	}
	s.versionID = versionID
	if s.tagger != nil {
		s.tagger.SetBatch(versionID)
	}

	if s.ctrl.State() == episode.AwaitingFirstReset && s.reg.Len() > 0 {
		if err := s.reset(); err != nil {
			return versionID, err
		}
	}
	return versionID, nil
}

// reconcile decodes one message into the registry and returns its arena count.
func (s *Session) reconcile(data []byte, source, mode string) (int, error) {
	b, err := payload.Decode(data)
	if err != nil {
		return 0, fmt.Errorf("decode batch: %w", err)
	}
	switch mode {
	case history.ModeAppend:
		ids, err := s.reg.AddAdditional(b)
		if err != nil {
			return 0, fmt.Errorf("append batch: %w", err)
		}
		s.logger.Printf("[SESSION] appended %d arenas from %s as %v", len(ids), source, ids)
	case history.ModeClear:
		rec, err := s.reg.ReplaceAll(b)
		if err != nil {
			return 0, fmt.Errorf("reload batch: %w", err)
		}
		s.logger.Printf("[SESSION] full reset from %s: %d arenas randomize=%v", source, len(rec.Applied), rec.Randomize)
	case history.ModeReplace, "":
		rec, err := s.reg.UpdateFromSource(b)
		if err != nil {
			return 0, fmt.Errorf("update batch: %w", err)
		}
		s.logger.Printf("[SESSION] batch from %s: %d arenas (%d inserted, %d replaced, %d kept) randomize=%v",
			source, len(rec.Applied), rec.Inserted, rec.Replaced, rec.Kept, rec.Randomize)
	default:
		return 0, fmt.Errorf("apply batch: unknown mode %q", mode)
	}
	return len(b.Arenas), nil
}

// #endregion apply

// #region requests

// Submit decodes a configuration message and reconciles it into the registry
// between two steps. It returns the id of the stored batch version, empty
// when the session has no Store.
func (s *Session) Submit(ctx context.Context, data []byte, source string) (string, error) {
	return s.do(ctx, request{data: data, source: source, mode: history.ModeReplace})
}

// Append adds every arena of the message after the highest stored id.
func (s *Session) Append(ctx context.Context, data []byte, source string) (string, error) {
	return s.do(ctx, request{data: data, source: source, mode: history.ModeAppend})
}

// ReplaceAll is a full environment reset: the registry is cleared and refilled
// from the message. The running episode keeps its configuration until the
// next reset.
func (s *Session) ReplaceAll(ctx context.Context, data []byte, source string) (string, error) {
	return s.do(ctx, request{data: data, source: source, mode: history.ModeClear})
}

// Restore replays a version chain read back from history, oldest first, with
// the mode each batch was accepted in. Nothing is recorded again. The last
// version of the chain becomes the batch in force.
func (s *Session) Restore(ctx context.Context, chain []history.Version) error {
	if len(chain) == 0 {
		return fmt.Errorf("restore: empty version chain")
	}
	_, err := s.do(ctx, request{chain: chain})
	return err
}

func (s *Session) do(ctx context.Context, req request) (string, error) {
	req.reply = make(chan result, 1)
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrStopped
	}
	select {
	case res := <-req.reply:
		return res.versionID, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	fn := func() { reply <- s.view() }
	select {
	case s.queries <- fn:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-s.done:
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) view() View {
	_, currentID, _ := s.reg.Current()
	v := View{
		IDs:          s.reg.IDs(),
		CurrentID:    currentID,
		Randomize:    s.reg.RandomizeEpisodes(),
		State:        s.ctrl.State(),
		ActiveID:     s.ctrl.ActiveID(),
		Episode:      s.ctrl.Episode(),
		Step:         s.step,
		TimeLimit:    s.ctrl.TimeLimit(),
		LightsOn:     s.lightsOn,
		Presentation: s.ctrl.Presentation(),
		Spawned:      s.ctrl.Spawned(),
		VersionID:    s.versionID,
	}
	if active := s.ctrl.Active(); active != nil {
		v.T = active.T
		v.Blackouts = active.Lights.Blackouts()
	}
	return v
}

// #endregion requests

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
