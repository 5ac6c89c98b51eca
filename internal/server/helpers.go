package server

import (
	"parley/internal/models"

	"github.com/gofiber/fiber/v2"
)

// currentUser returns the authenticated user placed in locals by AuthRequired
// or OptionalAuth.
func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}
