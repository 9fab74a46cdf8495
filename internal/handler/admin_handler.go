package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"claim-comments/internal/domain"
)

// Snapshotter takes an immediate database backup.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

type AdminHandler struct {
	backup Snapshotter
}

func NewAdminHandler(backup Snapshotter) *AdminHandler {
	return &AdminHandler{backup: backup}
}

func (h *AdminHandler) Backup(c *fiber.Ctx) error {
	if err := h.backup.Snapshot(c.UserContext()); err != nil {
		return domain.NewStorageError("backup failed", err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
