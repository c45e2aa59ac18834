package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetsync/internal/coordinator"
	"meetsync/internal/models"
	"meetsync/internal/notifications"
	"meetsync/internal/observability"
	"meetsync/internal/repository"
)

// FriendshipResult is the outcome of a friendship request: either a
// pending relationship row or, for an unknown email, an invitation
// token.
type FriendshipResult struct {
	Friendship *models.Friendship `json:"friendship,omitempty"`
	Invitation *models.Invitation `json:"invitation,omitempty"`
}

// FriendService manages the relationship lifecycle. Pair mutations run
// inside the pair's critical section so two concurrent requests can
// never create duplicate rows.
type FriendService struct {
	users       repository.UserRepository
	friends     repository.FriendRepository
	invitations repository.InvitationRepository
	locks       *coordinator.KeyedMutex
	notifier    *notifications.Notifier

	lockTimeout time.Duration
	log         *observability.Logger
}

// NewFriendService creates a new friend service.
func NewFriendService(
	users repository.UserRepository,
	friends repository.FriendRepository,
	invitations repository.InvitationRepository,
	locks *coordinator.KeyedMutex,
	notifier *notifications.Notifier,
	lockTimeout time.Duration,
) *FriendService {
	return &FriendService{
		users:       users,
		friends:     friends,
		invitations: invitations,
		locks:       locks,
		notifier:    notifier,
		lockTimeout: lockTimeout,
		log:         observability.Component("friend-service"),
	}
}

// RequestFriendship creates a pending relationship with the user behind
// targetEmail, or an invitation token when no account exists. Existing
// relationships conflict: accepted pairs are already friends, pending
// pairs have a request in flight.
func (s *FriendService) RequestFriendship(ctx context.Context, userID uint, targetEmail string) (*FriendshipResult, error) {
	targetEmail = strings.TrimSpace(strings.ToLower(targetEmail))
	if targetEmail == "" || !strings.Contains(targetEmail, "@") {
		return nil, models.NewValidationError("A valid email address is required")
	}

	target, err := s.users.GetByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return s.invite(ctx, userID, targetEmail)
	}
	if target.ID == userID {
		return nil, models.NewValidationError("Cannot send a friend request to yourself")
	}

	friendship := &models.Friendship{
		RequesterID: userID,
		AddresseeID: target.ID,
		Status:      models.FriendshipStatusPending,
	}

	key := coordinator.PairKey(userID, target.ID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		existing, err := s.friends.GetFriendshipBetweenUsers(ctx, userID, target.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.FriendshipStatusAccepted:
				return models.NewConflictError("Users are already friends")
			case models.FriendshipStatusPending:
				return models.NewConflictError("A friend request is already pending")
			}
			// A stale rejected row: replace it with a fresh request.
			if err := s.friends.Delete(ctx, existing.ID); err != nil {
				return err
			}
		}
		return s.friends.Create(ctx, friendship)
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	go func() {
		if err := s.notifier.FriendRequest(context.Background(), userID, target.ID); err != nil {
			s.log.Warn("friend request notification failed", "error", err)
		}
	}()
	return &FriendshipResult{Friendship: friendship}, nil
}

// invite returns an invitation token for an email with no account.
// Repeat requests for the same email reuse the existing token.
func (s *FriendService) invite(ctx context.Context, userID uint, email string) (*FriendshipResult, error) {
	existing, err := s.invitations.GetByInviterAndEmail(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &FriendshipResult{Invitation: existing}, nil
	}

	invitation := &models.Invitation{
		Token:     uuid.NewString(),
		InviterID: userID,
		Email:     email,
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, err
	}
	return &FriendshipResult{Invitation: invitation}, nil
}

// Respond resolves a pending request. Only the addressee may respond;
// accept marks the row accepted, decline deletes it.
func (s *FriendService) Respond(ctx context.Context, friendshipID, actorID uint, action string) (*models.Friendship, error) {
	if action != "accept" && action != "decline" {
		return nil, models.NewValidationError("Action must be accept or decline")
	}

	friendship, err := s.friends.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if friendship.AddresseeID != actorID {
		return nil, models.NewForbiddenError("Only the request's addressee can respond")
	}
	if friendship.Status != models.FriendshipStatusPending {
		return nil, models.NewConflictError("Friend request is no longer pending")
	}

	key := coordinator.PairKey(friendship.RequesterID, friendship.AddresseeID)
	err = s.locks.WithLock(ctx, key, s.lockTimeout, func(ctx context.Context) error {
		current, err := s.friends.GetByID(ctx, friendshipID)
		if err != nil {
			return err
		}
		if current.Status != models.FriendshipStatusPending {
			return models.NewConflictError("Friend request is no longer pending")
		}

		if action == "decline" {
			return s.friends.Delete(ctx, friendshipID)
		}
		if err := s.friends.UpdateStatus(ctx, friendshipID, models.FriendshipStatusAccepted); err != nil {
			return err
		}
		current.Status = models.FriendshipStatusAccepted
		friendship = current
		return nil
	})
	if err != nil {
		return nil, lockError(key, err)
	}

	if action == "decline" {
		declined := *friendship
		declined.Status = models.FriendshipStatusRejected
		return &declined, nil
	}

	go func() {
		if err := s.notifier.FriendAccepted(context.Background(), actorID, friendship.RequesterID); err != nil {
			s.log.Warn("friend accepted notification failed", "error", err)
		}
	}()
	return friendship, nil
}

// ListFriends returns the user's accepted friends.
func (s *FriendService) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friends.GetFriends(ctx, userID)
}

// PendingRequests returns inbound pending requests for the user.
func (s *FriendService) PendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.friends.GetPendingRequests(ctx, userID)
}

// StatusWith reports the relationship between two users: none, pending,
// or accepted.
func (s *FriendService) StatusWith(ctx context.Context, userID, otherID uint) (string, error) {
	friendship, err := s.friends.GetFriendshipBetweenUsers(ctx, userID, otherID)
	if err != nil {
		return "", err
	}
	if friendship == nil {
		return "none", nil
	}
	return string(friendship.Status), nil
}
