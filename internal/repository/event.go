package repository

import (
	"context"
	"errors"
	"time"

	"meetsync/internal/models"

	"gorm.io/gorm"
)

// EventRepository defines the interface for calendar event data operations
type EventRepository interface {
	// ListConfirmedBetween returns the user's non-tentative events
	// overlapping [from, to), ordered by start time.
	ListConfirmedBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, eventID uint) error
	// ReplaceExternal atomically swaps the user's externally-synced
	// events for a fresh provider snapshot.
	ReplaceExternal(ctx context.Context, userID uint, events []models.CalendarEvent) error
}

// eventRepository implements EventRepository
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) ListConfirmedBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND tentative = ? AND start_time < ? AND end_time > ?",
			userID, false, to, from).
		Order("start_time").
		Find(&events).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, eventID uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CalendarEvent{}, eventID)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("CalendarEvent", eventID)
	}
	return nil
}

func (r *eventRepository) ReplaceExternal(ctx context.Context, userID uint, events []models.CalendarEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND source = ?", userID, models.EventSourceExternal).
			Delete(&models.CalendarEvent{}).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}
