package storage

import (
	"context"

	"gorm.io/gorm"
)

// AtomicRepos bundles the repositories that participate in a multi-record
// mutation. All of them observe the same transaction.
type AtomicRepos struct {
	Users       UserRepository
	Requests    FriendRequestRepository
	Friendships FriendshipRepository
}

// TxManager 是"原子多记录更新"的显式事务边界。
// 好友请求接受等跨两条记录的变更必须通过 RunAtomic 执行：
// fn 内的所有写入要么全部可见，要么全部不可见。
type TxManager interface {
	RunAtomic(ctx context.Context, fn func(repos AtomicRepos) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a TxManager backed by a GORM database transaction.
func NewGormTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

// RunAtomic executes fn inside a single database transaction. Returning an
// error from fn rolls back every write made through the supplied repositories.
func (m *gormTxManager) RunAtomic(ctx context.Context, fn func(repos AtomicRepos) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := AtomicRepos{
			Users:       NewGormUserRepository(tx),
			Requests:    NewGormFriendRequestRepository(tx),
			Friendships: NewGormFriendshipRepository(tx),
		}
		return fn(repos)
	})
}
