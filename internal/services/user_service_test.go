package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewUserService(&fakeUserRepo{store: store})
	alice := store.addUser("alice")

	t.Run("applies only the provided fields", func(t *testing.T) {
		bio := "Hello there"
		updated, err := svc.UpdateProfile(ctx, alice.ID, UpdateProfileInput{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "Hello there", updated.Bio)
		assert.Equal(t, "alice", updated.FirstName, "untouched fields keep their value")

		first := "Alicia"
		updated, err = svc.UpdateProfile(ctx, alice.ID, UpdateProfileInput{FirstName: &first})
		require.NoError(t, err)
		assert.Equal(t, "Alicia", updated.FirstName)
		assert.Equal(t, "Hello there", updated.Bio)
	})

	t.Run("unknown user", func(t *testing.T) {
		bio := "x"
		_, err := svc.UpdateProfile(ctx, 999, UpdateProfileInput{Bio: &bio})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewUserService(&fakeUserRepo{store: store})

	alice := store.addUser("alice")
	store.addUser("bob")
	store.addUser("bonnie")
	store.addUser("carol")

	t.Run("excludes the requester and reports the total", func(t *testing.T) {
		page, err := svc.ListDirectory(ctx, alice.ID, "", 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
		for _, u := range page.Users {
			assert.NotEqual(t, alice.ID, u.ID)
		}
	})

	t.Run("filters by query", func(t *testing.T) {
		page, err := svc.ListDirectory(ctx, alice.ID, "bo", 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
	})

	t.Run("pages through results", func(t *testing.T) {
		page, err := svc.ListDirectory(ctx, alice.ID, "", 0, 2)
		require.NoError(t, err)
		assert.Len(t, page.Users, 2)
		assert.EqualValues(t, 3, page.Total)

		page, err = svc.ListDirectory(ctx, alice.ID, "", 2, 2)
		require.NoError(t, err)
		assert.Len(t, page.Users, 1)
	})

	t.Run("clamps an invalid limit", func(t *testing.T) {
		page, err := svc.ListDirectory(ctx, alice.ID, "", 0, -5)
		require.NoError(t, err)
		assert.Equal(t, 20, page.Limit)
	})
}

func TestGetPublicProfile(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewUserService(&fakeUserRepo{store: store})
	alice := store.addUser("alice")

	info, err := svc.GetPublicProfile(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, info.ID)
	assert.Equal(t, "alice", info.Username)

	_, err = svc.GetPublicProfile(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
