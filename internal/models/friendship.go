package models

// Friendship represents a confirmed friendship between two users.
// A single row covers both directions: if the row (A, B) exists, A is a
// friend of B and B is a friend of A. To avoid duplicates and simplify
// queries, UserID1 should always be less than UserID2.
type Friendship struct {
	BaseModel
	UserID1 uint `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userId1"` // ID of the first user
	User1   User `gorm:"foreignKey:UserID1" json:"-"`
	UserID2 uint `gorm:"not null;uniqueIndex:idx_friendship_users" json:"userId2"` // ID of the second user
	User2   User `gorm:"foreignKey:UserID2" json:"-"`
}

// TableName 指定 Friendship 模型的表名。
func (Friendship) TableName() string {
	return "friendships"
}

// EnsureCanonicalOrder sets UserID1 to the smaller ID and UserID2 to the larger ID.
// This should be called before creating a Friendship record.
func (f *Friendship) EnsureCanonicalOrder() {
	if f.UserID1 > f.UserID2 {
		f.UserID1, f.UserID2 = f.UserID2, f.UserID1
	}
}

// OtherUserID returns the counterpart of userID in this friendship,
// or 0 if userID is not part of the pair.
func (f *Friendship) OtherUserID(userID uint) uint {
	switch userID {
	case f.UserID1:
		return f.UserID2
	case f.UserID2:
		return f.UserID1
	default:
		return 0
	}
}
