package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"whatido/internal/database"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	db      *database.DB
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Handle returns the health status
// GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := "ok"
	if err := h.db.Ping(); err != nil {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status": status,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
