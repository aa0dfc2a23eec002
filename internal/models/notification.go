package models

// NotificationType 定义通知的类型。
type NotificationType string

const (
	NotificationRequestReceived NotificationType = "request_received"
	NotificationRequestAccepted NotificationType = "request_accepted"
	NotificationRequestRejected NotificationType = "request_rejected"
)

// Notification 代表推送给某个用户的一条通知。
// 由 Kafka 消费者在好友事件提交之后写入，再经 WebSocket 推送给在线用户。
type Notification struct {
	BaseModel
	UserID      uint             `gorm:"index;not null" json:"userId"`      // 通知的接收者
	ActorUserID uint             `gorm:"not null" json:"actorUserId"`       // 触发通知的用户
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Read        bool             `gorm:"default:false" json:"read"`
}

// TableName 指定 Notification 模型的表名。
func (Notification) TableName() string {
	return "notifications"
}
