package models

import "time"

// Invitation is issued when a friend request targets an email address
// with no account yet. The token can be redeemed at signup, which is
// handled by the external auth service.
type Invitation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"unique;not null" json:"token"`
	InviterID uint      `gorm:"not null" json:"inviter_id"`
	Email     string    `gorm:"not null;index" json:"email"`
	CreatedAt time.Time `json:"created_at"`

	Inviter User `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
}

// TableName specifies the table name for GORM
func (Invitation) TableName() string {
	return "invitations"
}
