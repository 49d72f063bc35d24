// Package notification implements the fan-out side effects of the
// marketplace: durable notification rows, a best-effort event stream, and an
// in-process subscription API for live listeners. Nothing here participates
// in settlement correctness.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gigbridge/gigbridge/pkg/metrics"
	"github.com/gigbridge/gigbridge/pkg/models"
)

// ErrNotFound is returned when a notification does not exist or belongs to
// another user.
var ErrNotFound = errors.New("notification not found")

// Service writes and serves notifications.
type Service struct {
	db        *gorm.DB
	logger    *zap.Logger
	publisher EventPublisher

	mu      sync.RWMutex
	nextSub int
	subs    map[uuid.UUID]map[int]chan models.Notification
}

// NewService creates a notification service. publisher may be nil, in which
// case events are only persisted.
func NewService(db *gorm.DB, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		logger:    logger,
		publisher: publisher,
		subs:      make(map[uuid.UUID]map[int]chan models.Notification),
	}
}

// Notify persists a notification for the user and pushes it to the event
// stream and any live subscribers. A stream failure is logged but does not
// fail the call once the row is written.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, notifType, content, link string) error {
	n := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Content:   content,
		Link:      link,
		CreatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsTotal.WithLabelValues("created").Inc()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, userID.String(), n); err != nil {
			s.logger.Warn("notification event publish failed",
				zap.String("user_id", userID.String()),
				zap.String("type", notifType),
				zap.Error(err),
			)
		}
	}

	s.deliver(n)
	return nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscribe registers a live listener for the user's notifications and
// returns the channel plus a cancellation handle. Slow listeners drop
// messages rather than block writers.
func (s *Service) Subscribe(userID uuid.UUID) (<-chan models.Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan models.Notification, 16)
	id := s.nextSub
	s.nextSub++

	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan models.Notification)
	}
	s.subs[userID][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if chans, ok := s.subs[userID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(s.subs, userID)
			}
		}
	}
	return ch, cancel
}

func (s *Service) deliver(n models.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
}
