package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type StatusHandler struct {
	started time.Time
	version string
	now     func() time.Time
}

func NewStatusHandler(version string) *StatusHandler {
	return &StatusHandler{started: time.Now(), version: version, now: time.Now}
}

type statusResponse struct {
	IsRunning bool   `json:"is_running"`
	Version   string `json:"version"`
	StartedAt int64  `json:"started_at"`
	Uptime    int64  `json:"uptime"`
}

func (h *StatusHandler) snapshot() statusResponse {
	return statusResponse{
		IsRunning: true,
		Version:   h.version,
		StartedAt: h.started.Unix(),
		Uptime:    int64(h.now().Sub(h.started).Seconds()),
	}
}

func (h *StatusHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.snapshot())
}

func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
