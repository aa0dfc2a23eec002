package storage

import (
	"context"
	"testing"

	"socialnet/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newFriendshipTestDB 创建一个内存 SQLite 库并迁移相关表。
func newFriendshipTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Friendship{}))

	alice := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)
	return db
}

func TestFriendshipRepositoryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("pair can become friends again after deletion", func(t *testing.T) {
		db := newFriendshipTestDB(t)
		repo := NewGormFriendshipRepository(db)

		first := &models.Friendship{UserID1: 1, UserID2: 2}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Delete(ctx, 2, 1))

		friends, err := repo.AreUsersFriends(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, friends)

		// The removed row must actually be gone from the table, not just
		// hidden, or the unique index over (user_id1, user_id2) rejects
		// the pair the next time they accept a request.
		again := &models.Friendship{UserID1: 1, UserID2: 2}
		require.NoError(t, repo.Create(ctx, again))

		friends, err = repo.AreUsersFriends(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, friends)
	})

	t.Run("deleting a non-existent pair reports not found", func(t *testing.T) {
		db := newFriendshipTestDB(t)
		repo := NewGormFriendshipRepository(db)

		err := repo.Delete(ctx, 1, 2)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("delete accepts either argument order", func(t *testing.T) {
		db := newFriendshipTestDB(t)
		repo := NewGormFriendshipRepository(db)

		f := &models.Friendship{UserID1: 1, UserID2: 2}
		require.NoError(t, repo.Create(ctx, f))
		require.NoError(t, repo.Delete(ctx, 1, 2))

		friends, err := repo.AreUsersFriends(ctx, 2, 1)
		require.NoError(t, err)
		assert.False(t, friends)
	})
}
