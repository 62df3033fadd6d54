package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"whatido/internal/services"
	"whatido/internal/timeutil"
)

// SummaryHandler handles the daily summary endpoint
type SummaryHandler struct {
	summaryService *services.SummaryService
}

// NewSummaryHandler creates a new summary handler
func NewSummaryHandler(summaryService *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// Get returns the summary for a date, generating and persisting it on
// first request after the cutoff. Before the cutoff (or for a date
// without posts) the body carries a fixed message and generated=false.
// GET /api/summaries/:date
func (h *SummaryHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	date := c.Params("date")
	if _, err := timeutil.ParseDate(date); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
	}

	summary, err := h.summaryService.GetOrGenerate(c.Context(), userID, date)
	if err != nil {
		log.Printf("❌ Summary request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load summary",
		})
	}

	return c.JSON(summary)
}
