package services

import (
	"context"
	"testing"
	"time"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotificationFixture() (NotificationService, *memStore) {
	store := newMemStore()
	svc := NewNotificationService(&fakeNotificationRepo{store: store}, &fakeUserRepo{store: store})
	return svc, store
}

func TestRecordFriendEvent(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name          string
		eventType     FriendEventType
		wantRecipient uint // who receives the notification
		wantActor     uint
		wantType      models.NotificationType
	}{
		{"request received notifies the recipient", FriendEventRequestReceived, 2, 1, models.NotificationRequestReceived},
		{"request accepted notifies the requester", FriendEventRequestAccepted, 1, 2, models.NotificationRequestAccepted},
		{"request rejected notifies the requester", FriendEventRequestRejected, 1, 2, models.NotificationRequestRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newNotificationFixture()
			event := &FriendEvent{
				Type:            tc.eventType,
				RequesterUserID: 1,
				RecipientUserID: 2,
				RequestID:       7,
				Timestamp:       time.Now(),
			}

			notification, err := svc.RecordFriendEvent(ctx, event)
			require.NoError(t, err)
			require.NotNil(t, notification)
			assert.Equal(t, tc.wantRecipient, notification.UserID)
			assert.Equal(t, tc.wantActor, notification.ActorUserID)
			assert.Equal(t, tc.wantType, notification.Type)
			assert.False(t, notification.Read)
			assert.Len(t, store.notifications, 1)
		})
	}

	t.Run("unknown event type is skipped", func(t *testing.T) {
		svc, store := newNotificationFixture()
		notification, err := svc.RecordFriendEvent(ctx, &FriendEvent{Type: "something_else"})
		require.NoError(t, err)
		assert.Nil(t, notification)
		assert.Empty(t, store.notifications)
	})
}

func TestListNotifications(t *testing.T) {
	ctx := context.Background()
	svc, store := newNotificationFixture()
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	for i := 0; i < 3; i++ {
		_, err := svc.RecordFriendEvent(ctx, &FriendEvent{
			Type:            FriendEventRequestReceived,
			RequesterUserID: bob.ID,
			RecipientUserID: alice.ID,
		})
		require.NoError(t, err)
	}

	t.Run("resolves actor info, newest first", func(t *testing.T) {
		notifications, err := svc.ListNotifications(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, notifications, 3)
		for _, n := range notifications {
			require.NotNil(t, n.Actor)
			assert.Equal(t, "bob", n.Actor.Username)
		}
		assert.Greater(t, notifications[0].ID, notifications[2].ID)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		notifications, err := svc.ListNotifications(ctx, bob.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, notifications)
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	svc, store := newNotificationFixture()
	alice := store.addUser("alice")
	bob := store.addUser("bob")

	notification, err := svc.RecordFriendEvent(ctx, &FriendEvent{
		Type:            FriendEventRequestReceived,
		RequesterUserID: bob.ID,
		RecipientUserID: alice.ID,
	})
	require.NoError(t, err)

	t.Run("owner can mark read", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(ctx, alice.ID, notification.ID))
		listed, err := svc.ListNotifications(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.True(t, listed[0].Read)
	})

	t.Run("others cannot mark read", func(t *testing.T) {
		err := svc.MarkRead(ctx, bob.ID, notification.ID)
		assert.ErrorIs(t, err, ErrNotificationNotFound)
	})
}
