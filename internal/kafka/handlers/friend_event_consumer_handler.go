package kafkahandlers

import (
	"context"
	"encoding/json"
	"log"

	"socialnet/internal/services"
	"socialnet/internal/websocket"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// FriendEventConsumerLogic turns committed friend events into notification
// rows and pushes them to connected clients. The events arrive after the
// request mutation has already been committed, so processing here never
// affects the request's outcome.
type FriendEventConsumerLogic struct {
	notificationService services.NotificationService
	hub                 *websocket.Hub // 可以为 nil (例如在测试或无推送部署中)
}

// NewFriendEventConsumerLogic creates a new instance of FriendEventConsumerLogic.
func NewFriendEventConsumerLogic(ns services.NotificationService, hub *websocket.Hub) *FriendEventConsumerLogic {
	if ns == nil {
		log.Panic("NotificationService cannot be nil")
	}
	return &FriendEventConsumerLogic{notificationService: ns, hub: hub}
}

// HandleFriendEvent is the MessageHandler passed to the Kafka consumer.
// It processes a single committed friend event.
func (h *FriendEventConsumerLogic) HandleFriendEvent(ctx context.Context, msg *kafka.Message) error {
	log.Printf("Kafka Consumer: Received message for Topic %s, Partition %d, Offset %d, Key: %s",
		*msg.TopicPartition.Topic, msg.TopicPartition.Partition, msg.TopicPartition.Offset, string(msg.Key))

	var event services.FriendEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// A malformed event cannot succeed on retry; skip it and commit.
		log.Printf("Error unmarshalling friend event (Value: '%s'): %v. This message will be skipped.", string(msg.Value), err)
		return nil
	}

	notification, err := h.notificationService.RecordFriendEvent(ctx, &event)
	if err != nil {
		// Persistence failed; return the error so the offset is not committed
		// and the event is retried.
		log.Printf("Error recording friend event %s (request %d): %v", event.Type, event.RequestID, err)
		return err
	}
	if notification == nil {
		return nil // Unknown event type, already logged
	}

	if h.hub != nil {
		payload, err := json.Marshal(notification)
		if err != nil {
			log.Printf("Error marshalling notification %d for push: %v", notification.ID, err)
			return nil // Notification is persisted; the push is best effort
		}
		h.hub.PushToUser(notification.UserID, payload)
	}

	return nil
}
