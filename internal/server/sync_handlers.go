package server

import (
	"github.com/gofiber/fiber/v2"
)

// TriggerCalendarSync handles POST /api/calendar/sync
//
// The sync itself runs in the background after the debounce window, so
// rapid repeat calls collapse into a single provider fetch.
func (s *Server) TriggerCalendarSync(c *fiber.Ctx) error {
	userID := currentUserID(c)

	s.syncService.Trigger(userID)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "sync scheduled",
	})
}
