package repository

import (
	"context"
	"errors"

	"meetsync/internal/models"

	"gorm.io/gorm"
)

// InvitationRepository defines the interface for invitation token operations
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByInviterAndEmail(ctx context.Context, inviterID uint, email string) (*models.Invitation, error)
}

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	if err := r.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *invitationRepository) GetByInviterAndEmail(ctx context.Context, inviterID uint, email string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).
		Where("inviter_id = ? AND email = ?", inviterID, email).
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &invitation, nil
}
