package repository

import (
	"context"
	"errors"

	"meetsync/internal/models"

	"gorm.io/gorm"
)

// ProposalRepository defines the interface for meeting proposal data operations
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.MeetingProposal) error
	GetByID(ctx context.Context, id uint) (*models.MeetingProposal, error)
	// ListForUser returns non-terminal proposals where the user is
	// proposer or invitee, newest first.
	ListForUser(ctx context.Context, userID uint) ([]models.MeetingProposal, error)
	// ListOpenBetween returns pending/negotiating proposals between the
	// pair, in either direction.
	ListOpenBetween(ctx context.Context, userID1, userID2 uint) ([]models.MeetingProposal, error)
	Update(ctx context.Context, proposal *models.MeetingProposal) error
	Delete(ctx context.Context, proposalID uint) error
}

// proposalRepository implements ProposalRepository
type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func (r *proposalRepository) Create(ctx context.Context, proposal *models.MeetingProposal) error {
	if err := r.db.WithContext(ctx).Create(proposal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uint) (*models.MeetingProposal, error) {
	var proposal models.MeetingProposal
	if err := r.db.WithContext(ctx).Preload("Proposer").Preload("Invitee").First(&proposal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("MeetingProposal", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &proposal, nil
}

func (r *proposalRepository) ListForUser(ctx context.Context, userID uint) ([]models.MeetingProposal, error) {
	var proposals []models.MeetingProposal
	if err := r.db.WithContext(ctx).
		Where("(proposer_id = ? OR invitee_id = ?) AND status IN ?",
			userID, userID, []models.ProposalStatus{models.ProposalPending, models.ProposalNegotiating}).
		Order("created_at DESC").
		Preload("Proposer").
		Preload("Invitee").
		Find(&proposals).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return proposals, nil
}

func (r *proposalRepository) ListOpenBetween(ctx context.Context, userID1, userID2 uint) ([]models.MeetingProposal, error) {
	var proposals []models.MeetingProposal
	if err := r.db.WithContext(ctx).
		Where("((proposer_id = ? AND invitee_id = ?) OR (proposer_id = ? AND invitee_id = ?)) AND status IN ?",
			userID1, userID2, userID2, userID1,
			[]models.ProposalStatus{models.ProposalPending, models.ProposalNegotiating}).
		Find(&proposals).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return proposals, nil
}

func (r *proposalRepository) Update(ctx context.Context, proposal *models.MeetingProposal) error {
	if err := r.db.WithContext(ctx).Save(proposal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *proposalRepository) Delete(ctx context.Context, proposalID uint) error {
	result := r.db.WithContext(ctx).Delete(&models.MeetingProposal{}, proposalID)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("MeetingProposal", proposalID)
	}
	return nil
}
