package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"socialnet/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	// FindPendingRequest checks for a pending request between two users in
	// either direction. Returns (nil, nil) when none exists.
	FindPendingRequest(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error)
	GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error
	GetPendingRequestsForUser(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error)
	GetPendingRequestsFromUser(ctx context.Context, requesterUserID uint) ([]models.FriendRequest, error)
	// GetPendingCounterpartIDs returns the IDs of all users with whom the
	// given user has a pending request, in either direction.
	GetPendingCounterpartIDs(ctx context.Context, userID uint) ([]uint, error)
	// CloseAcceptedRequests marks every accepted request between the pair as
	// cancelled. Called when a friendship is dissolved so that accepted
	// request rows and friendship rows stay in one-to-one correspondence.
	CloseAcceptedRequests(ctx context.Context, userID1, userID2 uint) error
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindPendingRequest checks if there is an existing pending request between two users (in either direction).
func (r *gormFriendRequestRepository) FindPendingRequest(ctx context.Context, userID1, userID2 uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(requester_user_id = ? AND recipient_user_id = ?) OR (requester_user_id = ? AND recipient_user_id = ?)", userID1, userID2, userID2, userID1).
		Where("status = ?", models.FriendRequestStatusPending).
		First(&request).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No pending request found is not an error in this context
		}
		return nil, err // Other database error
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) GetRequestByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).First(&request, requestID).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) UpdateRequestStatus(ctx context.Context, requestID uint, status models.FriendRequestStatus) error {
	return r.db.WithContext(ctx).Model(&models.FriendRequest{}).Where("id = ?", requestID).Update("status", status).Error
}

func (r *gormFriendRequestRepository) GetPendingRequestsForUser(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("recipient_user_id = ? AND status = ?", recipientUserID, models.FriendRequestStatusPending).
		Find(&requests).Error
	return requests, err
}

func (r *gormFriendRequestRepository) GetPendingRequestsFromUser(ctx context.Context, requesterUserID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND status = ?", requesterUserID, models.FriendRequestStatusPending).
		Find(&requests).Error
	return requests, err
}

// GetPendingCounterpartIDs collects the other side of every pending request
// involving userID. Used to exclude them from recommendations.
func (r *gormFriendRequestRepository) GetPendingCounterpartIDs(ctx context.Context, userID uint) ([]uint, error) {
	var outgoing []uint
	err := r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("requester_user_id = ? AND status = ?", userID, models.FriendRequestStatusPending).
		Pluck("recipient_user_id", &outgoing).Error
	if err != nil {
		return nil, err
	}

	var incoming []uint
	err = r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("recipient_user_id = ? AND status = ?", userID, models.FriendRequestStatusPending).
		Pluck("requester_user_id", &incoming).Error
	if err != nil {
		return nil, err
	}

	return append(outgoing, incoming...), nil
}

func (r *gormFriendRequestRepository) CloseAcceptedRequests(ctx context.Context, userID1, userID2 uint) error {
	return r.db.WithContext(ctx).Model(&models.FriendRequest{}).
		Where("(requester_user_id = ? AND recipient_user_id = ?) OR (requester_user_id = ? AND recipient_user_id = ?)", userID1, userID2, userID2, userID1).
		Where("status = ?", models.FriendRequestStatusAccepted).
		Update("status", models.FriendRequestStatusCancelled).Error
}
