package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("用户不存在")

// UpdateProfileInput holds the mutable profile fields. Username and email
// are fixed at registration and cannot be changed here.
type UpdateProfileInput struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// UserDirectoryPage is one page of the user directory listing.
type UserDirectoryPage struct {
	Users  []models.User `json:"users"`
	Total  int64         `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// UserService defines the interface for profile and directory operations.
type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetPublicProfile(ctx context.Context, userID uint) (*models.UserBasicInfo, error)
	UpdateProfile(ctx context.Context, userID uint, input UpdateProfileInput) (*models.User, error)
	// ListDirectory returns a page of all users except the requester,
	// optionally filtered by query.
	ListDirectory(ctx context.Context, currentUserID uint, query string, offset, limit int) (*UserDirectoryPage, error)
	SearchUsers(ctx context.Context, currentUserID uint, query string) ([]models.User, error)
}

type userService struct {
	userRepo storage.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("Error fetching user %d: %v", userID, err)
		return nil, fmt.Errorf("获取用户失败: %w", err)
	}
	return user, nil
}

// GetPublicProfile returns the public projection of a user record.
func (s *userService) GetPublicProfile(ctx context.Context, userID uint) (*models.UserBasicInfo, error) {
	info, err := s.userRepo.GetBasicInfoByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("Error fetching public profile for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取用户资料失败: %w", err)
	}
	return info, nil
}

// UpdateProfile applies the provided non-nil fields to the user's profile.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("获取用户失败: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		log.Printf("Error updating profile for user %d: %v", userID, err)
		return nil, fmt.Errorf("更新用户资料失败: %w", err)
	}
	return user, nil
}

// ListDirectory pages through all registered users excluding the requester.
func (s *userService) ListDirectory(ctx context.Context, currentUserID uint, query string, offset, limit int) (*UserDirectoryPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.userRepo.List(ctx, query, currentUserID, offset, limit)
	if err != nil {
		log.Printf("Error listing user directory for user %d: %v", currentUserID, err)
		return nil, fmt.Errorf("获取用户列表失败: %w", err)
	}

	return &UserDirectoryPage{
		Users:  users,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

func (s *userService) SearchUsers(ctx context.Context, currentUserID uint, query string) ([]models.User, error) {
	if query == "" {
		return []models.User{}, nil
	}
	users, err := s.userRepo.SearchUsers(ctx, query, currentUserID)
	if err != nil {
		log.Printf("Error searching users with query %q for user %d: %v", query, currentUserID, err)
		return nil, fmt.Errorf("搜索用户失败: %w", err)
	}
	return users, nil
}
