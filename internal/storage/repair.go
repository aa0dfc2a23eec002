package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"socialnet/internal/models"
)

// ErrPartialMutation marks a pair whose accept mutation was only half
// applied: the request row says accepted but no friendship row exists.
// With RunAtomic this state cannot be produced by the running server; the
// checker exists for operational recovery (e.g. after a restore from backup
// or a manual data fix).
var ErrPartialMutation = errors.New("好友请求已接受但好友关系记录缺失")

// PartialPair describes one inconsistent accepted request.
type PartialPair struct {
	RequestID       uint
	RequesterUserID uint
	RecipientUserID uint
}

// ConsistencyChecker scans for and repairs partially applied accept mutations.
type ConsistencyChecker interface {
	// FindPartialAccepts returns every accepted request without a matching
	// friendship row.
	FindPartialAccepts(ctx context.Context) ([]PartialPair, error)
	// RepairPartialAccepts re-applies the missing half of each partial
	// mutation and returns the number of repaired pairs.
	RepairPartialAccepts(ctx context.Context) (int, error)
}

type gormConsistencyChecker struct {
	db *gorm.DB
}

// NewGormConsistencyChecker creates a ConsistencyChecker over the given database.
func NewGormConsistencyChecker(db *gorm.DB) ConsistencyChecker {
	return &gormConsistencyChecker{db: db}
}

func (c *gormConsistencyChecker) FindPartialAccepts(ctx context.Context) ([]PartialPair, error) {
	var requests []models.FriendRequest
	// 反向连接: accepted 请求中找不到对应 friendship 行的那些。
	err := c.db.WithContext(ctx).
		Where("status = ?", models.FriendRequestStatusAccepted).
		Where(`NOT EXISTS (
			SELECT 1 FROM friendships f
			WHERE f.deleted_at IS NULL
			  AND f.user_id1 = LEAST(friend_requests.requester_user_id, friend_requests.recipient_user_id)
			  AND f.user_id2 = GREATEST(friend_requests.requester_user_id, friend_requests.recipient_user_id)
		)`).
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("扫描不一致的好友请求失败: %w", err)
	}

	pairs := make([]PartialPair, 0, len(requests))
	for _, req := range requests {
		pairs = append(pairs, PartialPair{
			RequestID:       req.ID,
			RequesterUserID: req.RequesterUserID,
			RecipientUserID: req.RecipientUserID,
		})
	}
	return pairs, nil
}

func (c *gormConsistencyChecker) RepairPartialAccepts(ctx context.Context) (int, error) {
	pairs, err := c.FindPartialAccepts(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	friendshipRepo := NewGormFriendshipRepository(c.db)
	for _, pair := range pairs {
		friendship := &models.Friendship{
			UserID1: pair.RequesterUserID,
			UserID2: pair.RecipientUserID,
		}
		friendship.EnsureCanonicalOrder()
		if err := friendshipRepo.Create(ctx, friendship); err != nil {
			log.Printf("修复请求 %d (%d <-> %d) 失败: %v",
				pair.RequestID, pair.RequesterUserID, pair.RecipientUserID, err)
			return repaired, fmt.Errorf("%w: request %d", ErrPartialMutation, pair.RequestID)
		}
		repaired++
		log.Printf("已修复请求 %d: 为用户 %d 和 %d 补建好友关系",
			pair.RequestID, pair.RequesterUserID, pair.RecipientUserID)
	}
	return repaired, nil
}
