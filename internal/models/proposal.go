package models

import (
	"encoding/json"
	"time"
)

// ProposalStatus defines the current state of a meeting proposal.
type ProposalStatus string

const (
	// ProposalPending indicates the invitee has not responded yet.
	ProposalPending ProposalStatus = "pending"
	// ProposalNegotiating indicates either party suggested an alternative.
	ProposalNegotiating ProposalStatus = "negotiating"
	// ProposalConfirmed indicates the invitee accepted. Terminal.
	ProposalConfirmed ProposalStatus = "confirmed"
	// ProposalRejected is reported for a rejected proposal; the row
	// itself is deleted, so this status is never persisted.
	ProposalRejected ProposalStatus = "rejected"
)

// MeetingType categorizes what kind of meeting is being proposed.
type MeetingType string

const (
	MeetingTypeFriend MeetingType = "friend"
	MeetingTypeOther  MeetingType = "other"
)

// Suggestion is one entry in a proposal's negotiation history.
type Suggestion struct {
	By       uint      `json:"by"`
	Time     time.Time `json:"time,omitempty"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

// MeetingProposal is a tentative meeting between two users. It is owned
// jointly but only mutable per the propose/accept/reject/suggest state
// machine; confirmation is terminal and rejection deletes the row.
type MeetingProposal struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ProposerID      uint           `gorm:"not null;index" json:"proposer_id"`
	InviteeID       uint           `gorm:"not null;index" json:"invitee_id"`
	StartTime       time.Time      `gorm:"not null" json:"start_time"`
	DurationMinutes int            `gorm:"not null" json:"duration_minutes"`
	Location        string         `json:"location"`
	MeetingType     MeetingType    `gorm:"type:varchar(20);default:'friend'" json:"meeting_type"`
	Status          ProposalStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	InviteeAccepted bool           `gorm:"default:false" json:"invitee_accepted"`

	SuggestedLocations string `gorm:"type:json" json:"-"`
	History            string `gorm:"type:json" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Proposer User `gorm:"foreignKey:ProposerID" json:"proposer,omitempty"`
	Invitee  User `gorm:"foreignKey:InviteeID" json:"invitee,omitempty"`
}

// TableName specifies the table name for GORM
func (MeetingProposal) TableName() string {
	return "meeting_proposals"
}

// EndTime returns the proposed end derived from start plus duration.
func (p *MeetingProposal) EndTime() time.Time {
	return p.StartTime.Add(time.Duration(p.DurationMinutes) * time.Minute)
}

// IsTerminal reports whether no further transitions are legal.
func (p *MeetingProposal) IsTerminal() bool {
	return p.Status == ProposalConfirmed || p.Status == ProposalRejected
}

// SuggestionHistory returns the ordered negotiation history, oldest first.
func (p *MeetingProposal) SuggestionHistory() []Suggestion {
	if p.History == "" {
		return nil
	}
	var history []Suggestion
	_ = json.Unmarshal([]byte(p.History), &history)
	return history
}

// AppendSuggestion records an alternative offered during negotiation.
// Earlier entries are kept, never superseded.
func (p *MeetingProposal) AppendSuggestion(s Suggestion) {
	history := append(p.SuggestionHistory(), s)
	bytes, _ := json.Marshal(history)
	p.History = string(bytes)
}

// LocationSuggestions returns the up-to-three suggested locations
// attached when the proposer gave no explicit location.
func (p *MeetingProposal) LocationSuggestions() []string {
	if p.SuggestedLocations == "" {
		return nil
	}
	var locations []string
	_ = json.Unmarshal([]byte(p.SuggestedLocations), &locations)
	return locations
}

// SetLocationSuggestions stores the suggested locations (capped at 3).
func (p *MeetingProposal) SetLocationSuggestions(locations []string) {
	if len(locations) > 3 {
		locations = locations[:3]
	}
	bytes, _ := json.Marshal(locations)
	p.SuggestedLocations = string(bytes)
}
