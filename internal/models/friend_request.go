package models

// FriendRequestStatus 定义好友请求的状态
type FriendRequestStatus string

const (
	FriendRequestStatusPending   FriendRequestStatus = "pending"
	FriendRequestStatusAccepted  FriendRequestStatus = "accepted"
	FriendRequestStatusRejected  FriendRequestStatus = "rejected"
	FriendRequestStatusCancelled FriendRequestStatus = "cancelled" // If sender cancels
)

// FriendRequest 代表一个好友请求记录。
// 对于任意一对用户，两个方向上最多只能存在一条 pending 记录。
type FriendRequest struct {
	BaseModel
	RequesterUserID uint                `gorm:"not null;index:idx_friend_request_users" json:"requesterUserId"` // 请求发送者
	RecipientUserID uint                `gorm:"not null;index:idx_friend_request_users" json:"recipientUserId"` // 请求接收者
	Status          FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`      // 请求状态
}

// TableName 指定 FriendRequest 模型的表名。
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// FriendRequestWithRequester is a DTO that includes friend request details
// along with basic information about the user who sent the request.
// Useful for API responses for listing pending requests.
type FriendRequestWithRequester struct {
	FriendRequest
	Requester *UserBasicInfo `json:"requester"`
}

// FriendRequestWithRecipient is the outgoing counterpart, used when the
// sender lists requests they have not cancelled yet.
type FriendRequestWithRecipient struct {
	FriendRequest
	Recipient *UserBasicInfo `json:"recipient"`
}

// RelationshipStatus 是两个用户之间关系的派生状态，不单独存储。
type RelationshipStatus string

const (
	RelationshipNone            RelationshipStatus = "none"
	RelationshipPendingOutgoing RelationshipStatus = "pending_outgoing" // 当前用户发出了请求
	RelationshipPendingIncoming RelationshipStatus = "pending_incoming" // 当前用户收到了请求
	RelationshipFriends         RelationshipStatus = "friends"
)
