package storage

import (
	"context"

	"gorm.io/gorm"

	"socialnet/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
type FriendshipRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	// Delete removes the friendship between two users. Returns
	// gorm.ErrRecordNotFound if they were not friends.
	Delete(ctx context.Context, userID1, userID2 uint) error
	AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error)
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
	// GetFriendIDsForUsers returns the friend ID set of each of the given
	// users in one pass. Used for mutual-friend counting.
	GetFriendIDsForUsers(ctx context.Context, userIDs []uint) (map[uint][]uint, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GormFriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

// Create creates a new friendship record in the database.
// It assumes that friendship.EnsureCanonicalOrder() has been called before.
func (r *gormFriendshipRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

// Delete removes the friendship row for the pair, regardless of argument order.
// The delete is unscoped: a soft-deleted row would still occupy the unique
// index over (user_id1, user_id2) and block the pair from ever becoming
// friends again. Relationship history lives in friend_requests.
func (r *gormFriendshipRepository) Delete(ctx context.Context, userID1, userID2 uint) error {
	u1, u2 := userID1, userID2
	if u1 > u2 {
		u1, u2 = u2, u1 // Canonical order for the unique index
	}
	res := r.db.WithContext(ctx).Unscoped().
		Where("user_id1 = ? AND user_id2 = ?", u1, u2).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AreUsersFriends checks if two users are already friends.
func (r *gormFriendshipRepository) AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	u1, u2 := userID1, userID2
	if u1 > u2 {
		u1, u2 = u2, u1 // Ensure canonical order for query
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id1 = ? AND user_id2 = ?", u1, u2).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetFriendIDs retrieves a list of user IDs who are friends with the given userID.
func (r *gormFriendshipRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	// The given userID can be on either side of the canonical pair, so the
	// counterpart has to be extracted from both columns.
	var idsPart1 []uint
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id1 = ?", userID).
		Pluck("user_id2", &idsPart1).Error
	if err != nil {
		return nil, err
	}

	var idsPart2 []uint
	err = r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id2 = ?", userID).
		Pluck("user_id1", &idsPart2).Error
	if err != nil {
		return nil, err
	}

	return append(idsPart1, idsPart2...), nil
}

// GetFriendIDsForUsers loads the friendship rows touching any of userIDs and
// groups the counterpart IDs per user.
func (r *gormFriendshipRepository) GetFriendIDsForUsers(ctx context.Context, userIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var rows []models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_id1 IN ? OR user_id2 IN ?", userIDs, userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	wanted := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	for _, f := range rows {
		if wanted[f.UserID1] {
			result[f.UserID1] = append(result[f.UserID1], f.UserID2)
		}
		if wanted[f.UserID2] {
			result[f.UserID2] = append(result[f.UserID2], f.UserID1)
		}
	}
	return result, nil
}
