package storage

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"socialnet/internal/models"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// List returns a page of the user directory, optionally filtered by a
	// case-insensitive search term over username and first/last name.
	// The requesting user is excluded from the listing.
	List(ctx context.Context, query string, currentUserID uint, offset, limit int) ([]models.User, int64, error)
	SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error)
	GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error)
	GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error)
	// ListIDsExcluding returns all user IDs except the given set.
	ListIDsExcluding(ctx context.Context, excluded []uint) ([]uint, error)
}

// gormUserRepository implements UserRepository using GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create creates a new user record in the database.
func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID retrieves a user by their ID.
func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err // Handles gorm.ErrRecordNotFound as well
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username. Usernames are
// case-sensitive, so this is an exact match.
func (r *gormUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email.
func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user record in the database.
func (r *gormUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return r.db.WithContext(ctx).Save(user).Error
}

// List implements the paginated user directory listing.
func (r *gormUserRepository) List(ctx context.Context, query string, currentUserID uint, offset, limit int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	tx := r.db.WithContext(ctx).Model(&models.User{}).Where("id != ?", currentUserID)
	if strings.TrimSpace(query) != "" {
		searchTerm := "%" + strings.ToLower(query) + "%"
		tx = tx.Where("(LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)",
			searchTerm, searchTerm, searchTerm)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := tx.
		Select("id", "username", "first_name", "last_name", "avatar_url", "bio", "created_at", "updated_at").
		Order("username ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SearchUsers implements the SearchUsers method for the UserRepository interface.
func (r *gormUserRepository) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error) {
	var users []models.User
	// 使用 strings.ToLower 来准备大小写不敏感的搜索词
	searchTerm := "%" + strings.ToLower(query) + "%"

	err := r.db.WithContext(ctx).
		// 在 username 和姓名字段上进行大小写不敏感的模糊匹配，并排除当前用户自己
		Where("(LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?) AND id != ?",
			searchTerm, searchTerm, searchTerm, currentUserID).
		// 明确选择需要的字段，避免泄露敏感信息
		Select("id", "username", "first_name", "last_name", "avatar_url").
		Limit(10).
		Find(&users).Error

	if err != nil {
		// 对于搜索功能，返回空的用户列表是正常行为
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return users, nil
		}
		return nil, err
	}
	return users, nil
}

// GetBasicInfoByID retrieves minimal public user info by ID.
func (r *gormUserRepository) GetBasicInfoByID(ctx context.Context, id uint) (*models.UserBasicInfo, error) {
	var basicInfo models.UserBasicInfo
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "username", "first_name", "last_name", "avatar_url").
		Where("id = ?", id).
		First(&basicInfo).Error
	if err != nil {
		return nil, err
	}
	return &basicInfo, nil
}

// GetMultipleBasicInfoByIDs retrieves minimal public user info for a list of user IDs.
func (r *gormUserRepository) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	var basicInfos []*models.UserBasicInfo
	if len(userIDs) == 0 {
		return basicInfos, nil // Return empty slice if no IDs are provided
	}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "username", "first_name", "last_name", "avatar_url").
		Where("id IN ?", userIDs).
		Find(&basicInfos).Error

	if err != nil {
		// Don't return ErrRecordNotFound for batch fetches, just return potentially empty slice
		return nil, err
	}
	return basicInfos, nil
}

// ListIDsExcluding returns every user ID not present in excluded.
// Used by the recommendation derivation.
func (r *gormUserRepository) ListIDsExcluding(ctx context.Context, excluded []uint) ([]uint, error) {
	var ids []uint
	tx := r.db.WithContext(ctx).Model(&models.User{})
	if len(excluded) > 0 {
		tx = tx.Where("id NOT IN ?", excluded)
	}
	err := tx.Pluck("id", &ids).Error
	return ids, err
}
