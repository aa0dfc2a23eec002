package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"socialnet/internal/models"
	"socialnet/internal/storage"
)

// Recommendation is one suggested user together with the mutual-friend count
// that produced its ranking.
type Recommendation struct {
	User          *models.UserBasicInfo `json:"user"`
	MutualFriends int                   `json:"mutualFriends"`
}

// RecommendationService derives friend suggestions for a user.
type RecommendationService interface {
	// GetRecommendations returns up to limit candidate users, excluding the
	// requester, existing friends and anyone with a pending request in either
	// direction. Candidates are ranked by mutual-friend count descending,
	// ties broken by username ascending.
	GetRecommendations(ctx context.Context, userID uint, limit int) ([]Recommendation, error)
}

type recommendationService struct {
	userRepo       storage.UserRepository
	friendRepo     storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
}

// NewRecommendationService creates a new RecommendationService instance.
func NewRecommendationService(
	userRepo storage.UserRepository,
	friendRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
) RecommendationService {
	return &recommendationService{
		userRepo:       userRepo,
		friendRepo:     friendRepo,
		friendshipRepo: friendshipRepo,
	}
}

func (s *recommendationService) GetRecommendations(ctx context.Context, userID uint, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 50 {
		limit = 50
	}

	// 1. Gather the exclusion set: self, current friends, pending counterparts
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, userID)
	if err != nil {
		log.Printf("Error getting friend IDs for recommendations (user %d): %v", userID, err)
		return nil, fmt.Errorf("获取好友列表失败: %w", err)
	}

	pendingIDs, err := s.friendRepo.GetPendingCounterpartIDs(ctx, userID)
	if err != nil {
		log.Printf("Error getting pending counterparts for recommendations (user %d): %v", userID, err)
		return nil, fmt.Errorf("获取待处理请求失败: %w", err)
	}

	excluded := make([]uint, 0, len(friendIDs)+len(pendingIDs)+1)
	excluded = append(excluded, userID)
	excluded = append(excluded, friendIDs...)
	excluded = append(excluded, pendingIDs...)

	// 2. Candidate set is everyone else
	candidateIDs, err := s.userRepo.ListIDsExcluding(ctx, excluded)
	if err != nil {
		log.Printf("Error listing candidate IDs for recommendations (user %d): %v", userID, err)
		return nil, fmt.Errorf("获取候选用户失败: %w", err)
	}
	if len(candidateIDs) == 0 {
		return []Recommendation{}, nil
	}

	// 3. Count mutual friends per candidate
	candidateFriends, err := s.friendshipRepo.GetFriendIDsForUsers(ctx, candidateIDs)
	if err != nil {
		log.Printf("Error loading candidate friend sets for recommendations (user %d): %v", userID, err)
		return nil, fmt.Errorf("获取候选好友关系失败: %w", err)
	}

	myFriends := make(map[uint]bool, len(friendIDs))
	for _, id := range friendIDs {
		myFriends[id] = true
	}

	mutualCount := make(map[uint]int, len(candidateIDs))
	for _, candidateID := range candidateIDs {
		count := 0
		for _, fid := range candidateFriends[candidateID] {
			if myFriends[fid] {
				count++
			}
		}
		mutualCount[candidateID] = count
	}

	// 4. Load the candidates' public info and rank
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, candidateIDs)
	if err != nil {
		log.Printf("Error loading candidate user info for recommendations (user %d): %v", userID, err)
		return nil, fmt.Errorf("获取候选用户信息失败: %w", err)
	}

	recommendations := make([]Recommendation, 0, len(infos))
	for _, info := range infos {
		recommendations = append(recommendations, Recommendation{
			User:          info,
			MutualFriends: mutualCount[info.ID],
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].MutualFriends != recommendations[j].MutualFriends {
			return recommendations[i].MutualFriends > recommendations[j].MutualFriends
		}
		return recommendations[i].User.Username < recommendations[j].User.Username
	})

	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}
