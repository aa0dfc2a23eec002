package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationWithActor pairs a notification with the public info of the
// user who triggered it.
type NotificationWithActor struct {
	models.Notification
	Actor *models.UserBasicInfo `json:"actor,omitempty"`
}

// NotificationService defines the interface for notification persistence and listing.
type NotificationService interface {
	// RecordFriendEvent persists the notification a friend event implies.
	// Returns nil when the event type does not produce a notification.
	RecordFriendEvent(ctx context.Context, event *FriendEvent) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID uint, limit int) ([]NotificationWithActor, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
}

type notificationService struct {
	notificationRepo storage.NotificationRepository
	userRepo         storage.UserRepository
}

// NewNotificationService creates a new NotificationService instance.
func NewNotificationService(notificationRepo storage.NotificationRepository, userRepo storage.UserRepository) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
	}
}

// RecordFriendEvent maps a committed friend event to a notification row.
// request_received notifies the recipient; accepted/rejected notify the requester.
func (s *notificationService) RecordFriendEvent(ctx context.Context, event *FriendEvent) (*models.Notification, error) {
	var notification *models.Notification

	switch event.Type {
	case FriendEventRequestReceived:
		notification = &models.Notification{
			UserID:      event.RecipientUserID,
			ActorUserID: event.RequesterUserID,
			Type:        models.NotificationRequestReceived,
		}
	case FriendEventRequestAccepted:
		notification = &models.Notification{
			UserID:      event.RequesterUserID,
			ActorUserID: event.RecipientUserID,
			Type:        models.NotificationRequestAccepted,
		}
	case FriendEventRequestRejected:
		notification = &models.Notification{
			UserID:      event.RequesterUserID,
			ActorUserID: event.RecipientUserID,
			Type:        models.NotificationRequestRejected,
		}
	default:
		log.Printf("Ignoring friend event with unknown type %q (request %d)", event.Type, event.RequestID)
		return nil, nil
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("Error persisting notification for user %d (event %s): %v", notification.UserID, event.Type, err)
		return nil, fmt.Errorf("保存通知失败: %w", err)
	}
	return notification, nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID uint, limit int) ([]NotificationWithActor, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := s.notificationRepo.ListForUser(ctx, userID, limit)
	if err != nil {
		log.Printf("Error listing notifications for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取通知列表失败: %w", err)
	}

	// Resolve actor info in one batch
	actorIDSet := make(map[uint]bool, len(notifications))
	actorIDs := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		if !actorIDSet[n.ActorUserID] {
			actorIDSet[n.ActorUserID] = true
			actorIDs = append(actorIDs, n.ActorUserID)
		}
	}
	actors, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, actorIDs)
	if err != nil {
		log.Printf("Error loading actor info for notifications of user %d: %v", userID, err)
		return nil, fmt.Errorf("获取通知用户信息失败: %w", err)
	}
	actorByID := make(map[uint]*models.UserBasicInfo, len(actors))
	for _, a := range actors {
		actorByID[a.ID] = a
	}

	result := make([]NotificationWithActor, 0, len(notifications))
	for _, n := range notifications {
		result = append(result, NotificationWithActor{
			Notification: n,
			Actor:        actorByID[n.ActorUserID],
		})
	}
	return result, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	err := s.notificationRepo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		log.Printf("Error marking notification %d read for user %d: %v", notificationID, userID, err)
		return fmt.Errorf("标记通知已读失败: %w", err)
	}
	return nil
}
