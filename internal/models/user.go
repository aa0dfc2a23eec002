package models

// User 代表系统中的一个注册账号。
// Username 和 Email 在创建后不可修改。
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	FirstName    string `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName     string `gorm:"type:varchar(100);not null" json:"lastName"`
	AvatarURL    string `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	Bio          string `gorm:"type:text" json:"bio,omitempty"`
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}

// UserBasicInfo holds minimal public information about a user.
// Used for friends lists, pending requests and recommendation rows.
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// BasicInfo projects the public fields of a full User record.
func (u *User) BasicInfo() *UserBasicInfo {
	return &UserBasicInfo{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
	}
}
