package server

import (
	"meetsync/internal/models"
	"meetsync/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ProposeMeeting handles POST /api/meetings
func (s *Server) ProposeMeeting(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req service.ProposeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid request body"))
	}

	proposal, err := s.proposalService.Propose(ctx, userID, req)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(proposal)
}

// GetMyMeetings handles GET /api/meetings
func (s *Server) GetMyMeetings(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	proposals, err := s.proposalService.ListForUser(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(proposals)
}

// GetMeeting handles GET /api/meetings/:id
func (s *Server) GetMeeting(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	proposalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	proposal, err := s.proposalService.Get(ctx, proposalID, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(proposal)
}

// AcceptMeeting handles POST /api/meetings/:id/accept
func (s *Server) AcceptMeeting(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	proposalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	proposal, err := s.proposalService.Accept(ctx, proposalID, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(proposal)
}

// RejectMeeting handles POST /api/meetings/:id/reject
func (s *Server) RejectMeeting(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	proposalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	proposal, err := s.proposalService.Reject(ctx, proposalID, userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(proposal)
}

// SuggestAlternative handles POST /api/meetings/:id/suggest
func (s *Server) SuggestAlternative(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	proposalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.SuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c,
			models.NewValidationError("Invalid request body"))
	}

	proposal, err := s.proposalService.Suggest(ctx, proposalID, userID, req)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(proposal)
}
