package admin

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/registry"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// #region deps

// Session is the part of *session.Session the admin surface drives.
type Session interface {
	Submit(ctx context.Context, data []byte, source string) (string, error)
	Append(ctx context.Context, data []byte, source string) (string, error)
	ReplaceAll(ctx context.Context, data []byte, source string) (string, error)
	Snapshot(ctx context.Context) (session.View, error)
}

// Versions lists stored batches. *history.Store satisfies it.
type Versions interface {
	ListVersions(limit int) ([]history.Version, error)
}

// Deps are the collaborators of the admin app. DB and History are optional;
// their routes answer 404 when unset.
type Deps struct {
	Session Session
	DB      *sql.DB // episode journal
	History Versions
	Logger  *log.Logger

	// RequestTimeout bounds each call into the session loop.
	RequestTimeout time.Duration
	// StatusInterval paces the /ws/status stream.
	StatusInterval time.Duration
}

// #endregion deps

// #region routes

type handlers struct {
	Deps
}

// New builds the fiber app serving the admin routes.
func New(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 5 * time.Second
	}
	if d.StatusInterval <= 0 {
		d.StatusInterval = time.Second
	}
	h := &handlers{Deps: d}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Get("/arenas", h.listArenas)
	app.Get("/arenas/current", h.currentArena)
	app.Post("/arenas", h.postArenas)
	app.Get("/episodes", h.listEpisodes)
	app.Get("/batches", h.listBatches)
	app.Get("/health", h.health)
	app.Use("/ws", requireUpgrade)
	app.Get("/ws/status", websocket.New(h.streamStatus))
	return app
}

func (h *handlers) listArenas(c *fiber.Ctx) error {
	v, err := h.snapshot(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ids":        v.IDs,
		"current_id": v.CurrentID,
		"randomize":  v.Randomize,
		"version_id": v.VersionID,
	})
}

func (h *handlers) currentArena(c *fiber.Ctx) error {
	v, err := h.snapshot(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"state":        v.State,
		"active_id":    v.ActiveID,
		"episode":      v.Episode,
		"step":         v.Step,
		"t":            v.T,
		"time_limit":   v.TimeLimit,
		"lights_on":    v.LightsOn,
		"blackouts":    v.Blackouts,
		"presentation": v.Presentation,
		"spawned":      v.Spawned,
	})
}

// postArenas applies the YAML request body. ?mode=append adds the arenas after
// the highest stored id instead of reconciling ids; ?mode=clear replaces the
// whole registry.
func (h *handlers) postArenas(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty body")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), h.RequestTimeout)
	defer cancel()

	var apply func(context.Context, []byte, string) (string, error)
	switch mode := c.Query("mode", history.ModeReplace); mode {
	case history.ModeReplace:
		apply = h.Session.Submit
	case history.ModeAppend:
		apply = h.Session.Append
	case history.ModeClear:
		apply = h.Session.ReplaceAll
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown mode "+strconv.Quote(mode))
	}
	versionID, err := apply(ctx, body, "http")
	if err != nil {
		h.Logger.Printf("[ADMIN] POST /arenas rejected: %v", err)
		return sessionError(err)
	}
	h.Logger.Printf("[ADMIN] POST /arenas accepted batch %s", versionID)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"version_id": versionID})
}

func (h *handlers) listEpisodes(c *fiber.Ctx) error {
	if h.DB == nil {
		return fiber.NewError(fiber.StatusNotFound, "episode journal disabled")
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	entries, err := logging.RecentEpisodes(h.DB, limit)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"episode_id": e.EpisodeID,
			"version_id": e.VersionID,
			"episode":    e.Episode,
			"arena_id":   e.ArenaID,
			"reason":     e.Reason,
			"seed":       e.Seed,
			"t":          e.T,
			"created_at": e.CreatedAt,
		})
	}
	return c.JSON(out)
}

func (h *handlers) listBatches(c *fiber.Ctx) error {
	if h.History == nil {
		return fiber.NewError(fiber.StatusNotFound, "batch history disabled")
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}
	versions, err := h.History.ListVersions(limit)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(versions))
	for _, v := range versions {
		out = append(out, fiber.Map{
			"version_id":  v.VersionID,
			"parent_id":   v.ParentID,
			"source":      v.Source,
			"mode":        v.Mode,
			"arena_count": v.ArenaCount,
			"created_at":  v.CreatedAt,
		})
	}
	return c.JSON(out)
}

// #endregion routes

// #region helpers

func (h *handlers) snapshot(c *fiber.Ctx) (session.View, error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.RequestTimeout)
	defer cancel()
	v, err := h.Session.Snapshot(ctx)
	if err != nil {
		return session.View{}, sessionError(err)
	}
	return v, nil
}

func sessionError(err error) error {
	switch {
	case registry.IsMalformed(err):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrStopped):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	}
	return err
}

func parseLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}

func (h *handlers) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		h.Logger.Printf("[ADMIN] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// #endregion helpers
