package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"socialnet/internal/middleware"
	"socialnet/internal/models"
	"socialnet/internal/services"

	"github.com/gorilla/mux"
)

// UserHandler 封装了用户资料和用户目录相关的 HTTP 处理器方法。
type UserHandler struct {
	userService   services.UserService
	friendService services.FriendService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService services.UserService, friendService services.FriendService) *UserHandler {
	return &UserHandler{userService: userService, friendService: friendService}
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error fetching current user %d: %v", userID, err)
			writeJSONError(w, "获取用户信息失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateMe handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	var input services.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error updating profile for user %d: %v", userID, err)
			writeJSONError(w, "更新用户资料失败", http.StatusInternalServerError)
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// publicProfileResponse 是公开用户资料响应，附带与当前用户的关系状态。
type publicProfileResponse struct {
	User               *models.UserBasicInfo     `json:"user"`
	RelationshipStatus models.RelationshipStatus `json:"relationshipStatus,omitempty"`
}

// GetPublicProfile handles GET /users/{userID}.
// The route is public; when the caller is authenticated the response also
// carries the relationship status between the two users.
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	targetID, err := strconv.ParseUint(vars["userID"], 10, 32)
	if err != nil {
		writeJSONError(w, "无效的用户ID格式", http.StatusBadRequest)
		return
	}

	info, err := h.userService.GetPublicProfile(r.Context(), uint(targetID))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error fetching public profile %d: %v", targetID, err)
			writeJSONError(w, "获取用户资料失败", http.StatusInternalServerError)
		}
		return
	}

	resp := publicProfileResponse{User: info}
	if currentUserID, ok := middleware.GetUserIDFromContext(r.Context()); ok && currentUserID != uint(targetID) {
		status, err := h.friendService.RelationshipStatus(r.Context(), currentUserID, uint(targetID))
		if err != nil {
			log.Printf("Error deriving relationship status between %d and %d: %v", currentUserID, targetID, err)
		} else {
			resp.RelationshipStatus = status
		}
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// ListDirectory handles GET /api/v1/users?q=&offset=&limit=
func (h *UserHandler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	page, err := h.userService.ListDirectory(r.Context(), userID, q.Get("q"), offset, limit)
	if err != nil {
		log.Printf("Error listing user directory for user %d: %v", userID, err)
		writeJSONError(w, "获取用户列表失败", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, page)
}

// SearchUsers handles GET /api/v1/users/search?q=
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSONError(w, "缺少搜索关键词 (q)", http.StatusBadRequest)
		return
	}

	users, err := h.userService.SearchUsers(r.Context(), userID, query)
	if err != nil {
		log.Printf("Error searching users with query %q for user %d: %v", query, userID, err)
		writeJSONError(w, "搜索用户失败", http.StatusInternalServerError)
		return
	}

	if users == nil {
		users = []models.User{} // Ensure empty list, not null, for JSON
	}
	writeJSONResponse(w, http.StatusOK, users)
}
