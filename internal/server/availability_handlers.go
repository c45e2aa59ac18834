package server

import (
	"meetsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAvailability handles GET /api/availability/:userId
//
// Query parameters: from, to (RFC 3339, default now..now+7d) and
// duration (minutes, default 60).
func (s *Server) GetAvailability(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	window, err := s.parseWindow(c)
	if err != nil {
		return nil
	}
	duration := c.QueryInt("duration", defaultDurationMinutes)

	result, err := s.availabilityService.GetAvailability(ctx, userID, otherID, window, duration)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"window":      window,
		"available":   result.Available,
		"recommended": result.Recommended,
	})
}
