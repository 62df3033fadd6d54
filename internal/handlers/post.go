package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"whatido/internal/models"
	"whatido/internal/services"
)

// PostHandler handles the composer and the feed
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create stores a new post for the authenticated user
// POST /api/posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	post, err := h.postService.Create(c.Context(), userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Post content cannot be empty",
			})
		case errors.Is(err, services.ErrQuotaExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Daily post limit reached",
			})
		default:
			log.Printf("❌ Failed to create post: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create post",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// Feed returns the user's posts grouped by date, newest first
// GET /api/posts
func (h *PostHandler) Feed(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	feed, err := h.postService.Feed(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load feed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load feed",
		})
	}

	return c.JSON(feed)
}
