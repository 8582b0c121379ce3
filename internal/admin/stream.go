package admin

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/shirou/gopsutil/v3/cpu"
)

// #region status-stream

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// streamStatus sends a session snapshot on connect and then every
// StatusInterval until the client goes away or the session stops.
func (h *handlers) streamStatus(c *websocket.Conn) {
	defer c.Close()
	ticker := time.NewTicker(h.StatusInterval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), h.RequestTimeout)
		v, err := h.Session.Snapshot(ctx)
		cancel()
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"error": err.Error()})
			return
		}
		if err := c.WriteJSON(v); err != nil {
			h.Logger.Printf("[ADMIN] status stream closed: %v", err)
			return
		}
		<-ticker.C
	}
}

// #endregion status-stream

// #region health

func (h *handlers) health(c *fiber.Ctx) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	out := fiber.Map{
		"status":     "ok",
		"goroutines": runtime.NumGoroutine(),
		"heap_bytes": mem.HeapAlloc,
	}
	if v, err := cpu.Percent(0, false); err == nil && len(v) > 0 {
		out["cpu_percent"] = v[0]
	}
	return c.JSON(out)
}

// #endregion health
