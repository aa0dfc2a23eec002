package apiserver

import (
	"log"
	"net/http"
	"strconv"

	"socialnet/internal/middleware"
	"socialnet/internal/services"
)

// RecommendationHandler handles HTTP requests for friend recommendations.
type RecommendationHandler struct {
	recommendationService services.RecommendationService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(rs services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: rs}
}

// GetRecommendationsHandler handles GET /api/v1/recommendations?limit=
func (h *RecommendationHandler) GetRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	recommendations, err := h.recommendationService.GetRecommendations(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Error getting recommendations for user %d: %v", userID, err)
		writeJSONError(w, "获取好友推荐失败", http.StatusInternalServerError)
		return
	}

	if recommendations == nil {
		recommendations = []services.Recommendation{}
	}
	writeJSONResponse(w, http.StatusOK, recommendations)
}
