// Package notifications publishes scheduling events into Redis channels
// for delivery to connected clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"meetsync/internal/models"
	"meetsync/internal/observability"
)

// Notification event types on the user channels.
const (
	EventMeetingProposed  = "meeting_proposed"
	EventMeetingSuggested = "meeting_suggested"
	EventMeetingConfirmed = "meeting_confirmed"
	EventMeetingRejected  = "meeting_rejected"
	EventFriendRequest    = "friend_request"
	EventFriendAccepted   = "friend_accepted"
)

// Event is the payload published to a user's channel.
type Event struct {
	Type       string    `json:"type"`
	FromUserID uint      `json:"from_user_id,omitempty"`
	ProposalID uint      `json:"proposal_id,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// Notifier publishes notifications into Redis channels. A Notifier with
// a nil client is a no-op, so a missing Redis never blocks the
// scheduling flows. Delivery is best-effort; failures are counted, not
// retried.
type Notifier struct {
	rdb *redis.Client
	log *observability.Logger
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, log: observability.Component("notifier")}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if n.rdb == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.rdb.Publish(ctx, UserChannel(userID), string(payload)).Err(); err != nil {
		observability.NotificationFailures.WithLabelValues(event.Type).Inc()
		return err
	}
	return nil
}

// MeetingProposed notifies the invitee of a new proposal.
func (n *Notifier) MeetingProposed(ctx context.Context, p *models.MeetingProposal) error {
	return n.PublishUser(ctx, p.InviteeID, Event{
		Type:       EventMeetingProposed,
		FromUserID: p.ProposerID,
		ProposalID: p.ID,
		Message:    fmt.Sprintf("New meeting proposed for %s", p.StartTime.Format(time.RFC3339)),
	})
}

// MeetingSuggested notifies the counterparty of an alternative.
func (n *Notifier) MeetingSuggested(ctx context.Context, p *models.MeetingProposal, byUserID, toUserID uint) error {
	return n.PublishUser(ctx, toUserID, Event{
		Type:       EventMeetingSuggested,
		FromUserID: byUserID,
		ProposalID: p.ID,
		Message:    fmt.Sprintf("Alternative suggested: %s at %s", p.StartTime.Format(time.RFC3339), p.Location),
	})
}

// MeetingConfirmed notifies the proposer that the invitee accepted.
func (n *Notifier) MeetingConfirmed(ctx context.Context, p *models.MeetingProposal) error {
	return n.PublishUser(ctx, p.ProposerID, Event{
		Type:       EventMeetingConfirmed,
		FromUserID: p.InviteeID,
		ProposalID: p.ID,
		Message:    fmt.Sprintf("Meeting confirmed for %s", p.StartTime.Format(time.RFC3339)),
	})
}

// MeetingRejected notifies the proposer that the invitee declined.
func (n *Notifier) MeetingRejected(ctx context.Context, proposerID, inviteeID, proposalID uint) error {
	return n.PublishUser(ctx, proposerID, Event{
		Type:       EventMeetingRejected,
		FromUserID: inviteeID,
		ProposalID: proposalID,
		Message:    "Meeting proposal declined",
	})
}

// FriendRequest notifies a user of an inbound friendship request.
func (n *Notifier) FriendRequest(ctx context.Context, fromUserID, toUserID uint) error {
	return n.PublishUser(ctx, toUserID, Event{
		Type:       EventFriendRequest,
		FromUserID: fromUserID,
		Message:    "New friend request",
	})
}

// FriendAccepted notifies the original requester.
func (n *Notifier) FriendAccepted(ctx context.Context, byUserID, toUserID uint) error {
	return n.PublishUser(ctx, toUserID, Event{
		Type:       EventFriendAccepted,
		FromUserID: byUserID,
		Message:    "Friend request accepted",
	})
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls
// onMessage for each incoming message until ctx is done.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							n.log.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
