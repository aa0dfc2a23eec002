package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"socialnet/internal/config"
	"socialnet/internal/kafka"
	"socialnet/internal/models"
	"socialnet/internal/storage"

	"gorm.io/gorm"
)

var (
	ErrFriendRequestSelf     = errors.New("不能添加自己为好友")
	ErrFriendRequestExists   = errors.New("已存在待处理的好友请求")
	ErrRecipientNotFound     = errors.New("接收用户不存在")
	ErrAlreadyFriends        = errors.New("你们已经是好友了")
	ErrFriendRequestNotFound = errors.New("好友请求不存在")
	ErrNotRecipientOfRequest = errors.New("您不是此好友请求的接收者")
	ErrNotRequesterOfRequest = errors.New("您不是此好友请求的发送者")
	ErrRequestNotPending     = errors.New("该好友请求不是待处理状态")
	ErrNotFriends            = errors.New("你们不是好友关系")
)

// FriendEventType 标识一次好友关系状态迁移。
type FriendEventType string

const (
	FriendEventRequestReceived FriendEventType = "request_received"
	FriendEventRequestAccepted FriendEventType = "request_accepted"
	FriendEventRequestRejected FriendEventType = "request_rejected"
)

// FriendEvent defines the structure for Kafka messages published after a
// friend-request transition has been committed. The mutation itself is
// synchronous; these events only drive notifications.
type FriendEvent struct {
	Type            FriendEventType `json:"type"`
	RequesterUserID uint            `json:"requesterUserId"`
	RecipientUserID uint            `json:"recipientUserId"`
	RequestID       uint            `json:"requestId"`
	Timestamp       time.Time       `json:"timestamp"`
}

// FriendService defines the interface for the friend-relationship state machine.
type FriendService interface {
	SendRequest(ctx context.Context, requesterID, recipientID uint) (*models.FriendRequest, error)
	CancelRequest(ctx context.Context, requesterID, requestID uint) error
	AcceptRequest(ctx context.Context, recipientUserID, requestID uint) error
	RejectRequest(ctx context.Context, recipientUserID, requestID uint) error
	Unfriend(ctx context.Context, userID, friendID uint) error
	RelationshipStatus(ctx context.Context, userID, otherID uint) (models.RelationshipStatus, error)
	ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRequester, error)
	ListOutgoingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRecipient, error)
	GetFriendsList(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error)
}

type friendService struct {
	userRepo       storage.UserRepository
	friendRepo     storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
	txManager      storage.TxManager
	producer       kafka.MessageProducer // 可以为 nil (例如在测试中)
	kafkaConfig    config.KafkaConfig
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(
	userRepo storage.UserRepository,
	friendRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
	txManager storage.TxManager,
	producer kafka.MessageProducer,
	cfg config.KafkaConfig,
) FriendService {
	return &friendService{
		userRepo:       userRepo,
		friendRepo:     friendRepo,
		friendshipRepo: friendshipRepo,
		txManager:      txManager,
		producer:       producer,
		kafkaConfig:    cfg,
	}
}

// SendRequest validates the transition NONE -> PENDING(requester) and
// creates the pending request record.
func (s *friendService) SendRequest(ctx context.Context, requesterID, recipientID uint) (*models.FriendRequest, error) {
	if requesterID == recipientID {
		return nil, ErrFriendRequestSelf
	}

	// 1. Check if recipient exists
	_, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		log.Printf("Error checking recipient user %d: %v", recipientID, err)
		return nil, fmt.Errorf("检查接收用户时出错: %w", err)
	}

	// 2. Check if users are already friends
	areFriends, err := s.friendshipRepo.AreUsersFriends(ctx, requesterID, recipientID)
	if err != nil {
		log.Printf("Error checking if users %d and %d are already friends: %v", requesterID, recipientID, err)
		return nil, fmt.Errorf("检查好友关系时出错: %w", err)
	}
	if areFriends {
		return nil, ErrAlreadyFriends
	}

	// 3. Check if a pending request already exists (in either direction)
	existingRequest, err := s.friendRepo.FindPendingRequest(ctx, requesterID, recipientID)
	if err != nil {
		log.Printf("Error checking existing friend request between %d and %d: %v", requesterID, recipientID, err)
		return nil, fmt.Errorf("检查现有请求时出错: %w", err)
	}
	if existingRequest != nil {
		return nil, ErrFriendRequestExists
	}

	// 4. Create the pending request
	request := &models.FriendRequest{
		RequesterUserID: requesterID,
		RecipientUserID: recipientID,
		Status:          models.FriendRequestStatusPending,
	}
	if err := s.friendRepo.Create(ctx, request); err != nil {
		log.Printf("Error saving friend request (%d -> %d): %v", requesterID, recipientID, err)
		return nil, fmt.Errorf("创建好友请求失败: %w", err)
	}

	s.publishEvent(ctx, FriendEventRequestReceived, request)
	return request, nil
}

// CancelRequest withdraws a pending request. Only the original sender may cancel.
func (s *friendService) CancelRequest(ctx context.Context, requesterID, requestID uint) error {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendRequestNotFound
		}
		log.Printf("Error retrieving friend request %d for cancellation: %v", requestID, err)
		return fmt.Errorf("检索好友请求失败: %w", err)
	}

	if request.RequesterUserID != requesterID {
		return ErrNotRequesterOfRequest
	}
	if request.Status != models.FriendRequestStatusPending {
		return ErrRequestNotPending
	}

	if err := s.friendRepo.UpdateRequestStatus(ctx, requestID, models.FriendRequestStatusCancelled); err != nil {
		log.Printf("Error updating friend request %d status to cancelled: %v", requestID, err)
		return fmt.Errorf("取消好友请求失败: %w", err)
	}

	log.Printf("Friend request %d cancelled by user %d.", requestID, requesterID)
	return nil
}

// AcceptRequest processes the acceptance of a friend request. Marking the
// request accepted and creating the friendship row form one atomic unit: a
// concurrent reader observes either both mutations or neither.
func (s *friendService) AcceptRequest(ctx context.Context, recipientUserID, requestID uint) error {
	var accepted *models.FriendRequest

	txErr := s.txManager.RunAtomic(ctx, func(repos storage.AtomicRepos) error {
		// 1. Retrieve the friend request
		request, err := repos.Requests.GetRequestByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendRequestNotFound
			}
			log.Printf("Error retrieving friend request %d: %v", requestID, err)
			return fmt.Errorf("检索好友请求失败: %w", err)
		}

		// 2. Validate the request
		if request.RecipientUserID != recipientUserID {
			return ErrNotRecipientOfRequest
		}
		if request.Status != models.FriendRequestStatusPending {
			return ErrRequestNotPending
		}

		// 3. Check if they are already friends (should not happen if the
		// pending invariant holds, but guard anyway)
		areFriends, err := repos.Friendships.AreUsersFriends(ctx, request.RequesterUserID, request.RecipientUserID)
		if err != nil {
			log.Printf("Error checking friendship in AcceptRequest for users %d, %d: %v", request.RequesterUserID, request.RecipientUserID, err)
			return fmt.Errorf("检查好友关系时出错: %w", err)
		}

		// 4. Update friend request status to accepted
		if err := repos.Requests.UpdateRequestStatus(ctx, requestID, models.FriendRequestStatusAccepted); err != nil {
			log.Printf("Error updating friend request %d status to accepted: %v", requestID, err)
			return fmt.Errorf("更新好友请求状态失败: %w", err)
		}

		// 5. Create friendship record (only if not already friends)
		if !areFriends {
			friendship := &models.Friendship{
				UserID1: request.RequesterUserID,
				UserID2: request.RecipientUserID,
			}
			friendship.EnsureCanonicalOrder() // Ensure UserID1 < UserID2
			if err := repos.Friendships.Create(ctx, friendship); err != nil {
				log.Printf("Error creating friendship for users %d and %d: %v", request.RequesterUserID, request.RecipientUserID, err)
				return fmt.Errorf("创建好友关系失败: %w", err)
			}
		} else {
			log.Printf("Skipped creating friendship for request %d as it already exists between %d and %d", requestID, request.RequesterUserID, request.RecipientUserID)
		}

		accepted = request
		return nil // Commit transaction
	})

	if txErr != nil {
		return txErr
	}

	log.Printf("Friend request %d accepted by user %d for requester %d.", requestID, recipientUserID, accepted.RequesterUserID)
	s.publishEvent(ctx, FriendEventRequestAccepted, accepted)
	return nil
}

// RejectRequest processes the rejection of a friend request. Only one record
// changes, so no transaction is required.
func (s *friendService) RejectRequest(ctx context.Context, recipientUserID, requestID uint) error {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendRequestNotFound
		}
		log.Printf("Error retrieving friend request %d for rejection: %v", requestID, err)
		return fmt.Errorf("检索好友请求失败: %w", err)
	}

	if request.RecipientUserID != recipientUserID {
		return ErrNotRecipientOfRequest
	}
	if request.Status != models.FriendRequestStatusPending {
		return ErrRequestNotPending
	}

	if err := s.friendRepo.UpdateRequestStatus(ctx, requestID, models.FriendRequestStatusRejected); err != nil {
		log.Printf("Error updating friend request %d status to rejected: %v", requestID, err)
		return fmt.Errorf("更新好友请求状态为已拒绝失败: %w", err)
	}

	log.Printf("Friend request %d rejected by user %d.", requestID, recipientUserID)
	s.publishEvent(ctx, FriendEventRequestRejected, request)
	return nil
}

// Unfriend dissolves an existing friendship. The friendship row removal and
// the closing of the accepted request history run as one atomic unit so the
// consistency checker never sees an accepted request without its friendship.
func (s *friendService) Unfriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return ErrNotFriends
	}

	txErr := s.txManager.RunAtomic(ctx, func(repos storage.AtomicRepos) error {
		if err := repos.Friendships.Delete(ctx, userID, friendID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFriends
			}
			log.Printf("Error deleting friendship between %d and %d: %v", userID, friendID, err)
			return fmt.Errorf("解除好友关系失败: %w", err)
		}
		if err := repos.Requests.CloseAcceptedRequests(ctx, userID, friendID); err != nil {
			log.Printf("Error closing accepted requests between %d and %d: %v", userID, friendID, err)
			return fmt.Errorf("关闭历史好友请求失败: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	log.Printf("User %d unfriended user %d.", userID, friendID)
	return nil
}

// RelationshipStatus derives the four-valued relationship state between two users.
func (s *friendService) RelationshipStatus(ctx context.Context, userID, otherID uint) (models.RelationshipStatus, error) {
	if userID == otherID {
		return models.RelationshipNone, nil
	}

	areFriends, err := s.friendshipRepo.AreUsersFriends(ctx, userID, otherID)
	if err != nil {
		return models.RelationshipNone, fmt.Errorf("检查好友关系时出错: %w", err)
	}
	if areFriends {
		return models.RelationshipFriends, nil
	}

	pending, err := s.friendRepo.FindPendingRequest(ctx, userID, otherID)
	if err != nil {
		return models.RelationshipNone, fmt.Errorf("检查现有请求时出错: %w", err)
	}
	if pending == nil {
		return models.RelationshipNone, nil
	}
	if pending.RequesterUserID == userID {
		return models.RelationshipPendingOutgoing, nil
	}
	return models.RelationshipPendingIncoming, nil
}

// ListPendingRequests retrieves all pending friend requests directed at the given user.
func (s *friendService) ListPendingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRequester, error) {
	pendingRequests, err := s.friendRepo.GetPendingRequestsForUser(ctx, userID)
	if err != nil {
		log.Printf("Error fetching pending friend requests for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取待处理好友请求失败: %w", err)
	}

	result := make([]*models.FriendRequestWithRequester, 0, len(pendingRequests))
	for _, req := range pendingRequests {
		requester, err := s.userRepo.GetBasicInfoByID(ctx, req.RequesterUserID)
		if err != nil {
			log.Printf("Error fetching requester info for user %d (request %d): %v", req.RequesterUserID, req.ID, err)
			continue
		}
		result = append(result, &models.FriendRequestWithRequester{
			FriendRequest: req,
			Requester:     requester,
		})
	}
	return result, nil
}

// ListOutgoingRequests retrieves the pending requests the given user has sent.
func (s *friendService) ListOutgoingRequests(ctx context.Context, userID uint) ([]*models.FriendRequestWithRecipient, error) {
	outgoing, err := s.friendRepo.GetPendingRequestsFromUser(ctx, userID)
	if err != nil {
		log.Printf("Error fetching outgoing friend requests for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取已发送好友请求失败: %w", err)
	}

	result := make([]*models.FriendRequestWithRecipient, 0, len(outgoing))
	for _, req := range outgoing {
		recipient, err := s.userRepo.GetBasicInfoByID(ctx, req.RecipientUserID)
		if err != nil {
			log.Printf("Error fetching recipient info for user %d (request %d): %v", req.RecipientUserID, req.ID, err)
			continue
		}
		result = append(result, &models.FriendRequestWithRecipient{
			FriendRequest: req,
			Recipient:     recipient,
		})
	}
	return result, nil
}

// GetFriendsList retrieves the basic info for all friends of the given user.
func (s *friendService) GetFriendsList(ctx context.Context, userID uint) ([]*models.UserBasicInfo, error) {
	// 1. Get the IDs of all friends
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		log.Printf("Error getting friend IDs for user %d: %v", userID, err)
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}

	if len(friendIDs) == 0 {
		return []*models.UserBasicInfo{}, nil // Return empty list if no friends
	}

	// 2. Get the basic info for those friend IDs
	friendsInfo, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, friendIDs)
	if err != nil {
		log.Printf("Error getting basic info for friend IDs of user %d: %v", userID, err)
		return nil, fmt.Errorf("获取好友信息失败: %w", err)
	}

	return friendsInfo, nil
}

// publishEvent emits a post-commit FriendEvent to Kafka. Failures are logged
// and swallowed: the state transition has already been committed and the
// notification pipeline must not affect its outcome.
func (s *friendService) publishEvent(ctx context.Context, eventType FriendEventType, request *models.FriendRequest) {
	if s.producer == nil {
		return
	}

	event := FriendEvent{
		Type:            eventType,
		RequesterUserID: request.RequesterUserID,
		RecipientUserID: request.RecipientUserID,
		RequestID:       request.ID,
		Timestamp:       time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling friend event %s for request %d: %v", eventType, request.ID, err)
		return
	}

	topic := s.kafkaConfig.FriendEventsTopic
	key := []byte(fmt.Sprintf("%d-%d", request.RequesterUserID, request.RecipientUserID))
	if err := s.producer.SendMessage(ctx, topic, key, payload); err != nil {
		log.Printf("Error producing friend event %s to Kafka topic %s: %v", eventType, topic, err)
	}
}
