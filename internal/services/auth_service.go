package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"socialnet/internal/auth"
	"socialnet/internal/config"
	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("用户名已被占用")
	ErrEmailTaken         = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidInput       = errors.New("输入无效")
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// AuthService defines the interface for registration, login and logout.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	// Login verifies the credentials and returns the user plus a signed JWT.
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	// Logout revokes the token by blacklisting its jti until expiry.
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	authCfg   config.AuthConfig
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, authCfg config.AuthConfig) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		authCfg:   authCfg,
	}
}

// Register creates a new account after validating the input and uniqueness
// of username and email.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: 用户名、邮箱和密码不能为空", ErrInvalidInput)
	}
	if len(input.Password) < 6 {
		return nil, fmt.Errorf("%w: 密码长度至少为 6 位", ErrInvalidInput)
	}
	if !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("%w: 邮箱格式不正确", ErrInvalidInput)
	}

	// 1. Check username uniqueness
	_, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking username %s during registration: %v", input.Username, err)
		return nil, fmt.Errorf("检查用户名时出错: %w", err)
	}

	// 2. Check email uniqueness
	_, err = s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking email during registration: %v", err)
		return nil, fmt.Errorf("检查邮箱时出错: %w", err)
	}

	// 3. Hash the password
	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Error hashing password during registration: %v", err)
		return nil, fmt.Errorf("密码处理失败: %w", err)
	}

	// 4. Create the user
	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent registration between the
			// uniqueness checks and the insert.
			if _, lookupErr := s.userRepo.GetByUsername(ctx, input.Username); lookupErr == nil {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		log.Printf("Error creating user %s: %v", input.Username, err)
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	log.Printf("User %s (ID: %d) registered successfully.", user.Username, user.ID)
	return user, nil
}

// Login verifies the password against the stored bcrypt hash. The same error
// is returned for an unknown username and a wrong password.
func (s *authService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		log.Printf("Error fetching user %s during login: %v", username, err)
		return nil, "", fmt.Errorf("登录查询失败: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, s.authCfg)
	if err != nil {
		log.Printf("Error generating token for user %s: %v", username, err)
		return nil, "", fmt.Errorf("生成令牌失败: %w", err)
	}

	log.Printf("User %s (ID: %d) logged in.", user.Username, user.ID)
	return user, token, nil
}

// Logout places the token's jti on the blacklist until the token would have
// expired on its own. A token without a jti cannot be revoked.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return fmt.Errorf("令牌缺少 JTI，无法吊销")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	} else {
		// No expiry claim; blacklist for the configured lifetime as a fallback.
		expiresAt = time.Now().Add(s.authCfg.JWTExpiry)
	}

	if err := s.blacklist.Add(ctx, claims.ID, expiresAt); err != nil {
		log.Printf("Error blacklisting token jti %s for user %d: %v", claims.ID, claims.UserID, err)
		return fmt.Errorf("吊销令牌失败: %w", err)
	}

	log.Printf("User %d logged out, token jti %s revoked.", claims.UserID, claims.ID)
	return nil
}
