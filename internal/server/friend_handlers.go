package server

import (
	"meetsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.friendService.RequestFriendship(ctx, userID, req.Email)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if result.Invitation != nil {
		// Unknown address: an invitation was recorded instead of a request.
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"invited": true,
			"email":   result.Invitation.Email,
		})
	}
	return c.Status(fiber.StatusCreated).JSON(result.Friendship)
}

// GetPendingRequests handles GET /api/friends/requests
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	requests, err := s.friendService.PendingRequests(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(requests)
}

// AcceptFriendRequest handles POST /api/friends/requests/:requestId/accept
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.Respond(ctx, requestID, userID, "accept")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(friendship)
}

// DeclineFriendRequest handles POST /api/friends/requests/:requestId/decline
func (s *Server) DeclineFriendRequest(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}

	friendship, err := s.friendService.Respond(ctx, requestID, userID, "decline")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(friendship)
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	friends, err := s.friendService.ListFriends(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(friends)
}

// GetFriendshipStatus handles GET /api/friends/status/:userId
func (s *Server) GetFriendshipStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	otherID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, err := s.friendService.StatusWith(ctx, userID, otherID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}
