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

// FriendHandler handles HTTP requests for friend requests and friendships.
type FriendHandler struct {
	friendService services.FriendService
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(fs services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: fs}
}

// SendFriendRequestPayload defines the expected JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	RecipientID uint `json:"recipientId"`
}

// SendFriendRequestHandler handles POST /api/v1/friend-requests
func (h *FriendHandler) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	var payload SendFriendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.RecipientID == 0 {
		writeJSONError(w, "缺少接收者ID (recipientId)", http.StatusBadRequest)
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), requesterID, payload.RecipientID)
	if err != nil {
		if errors.Is(err, services.ErrFriendRequestSelf) || errors.Is(err, services.ErrAlreadyFriends) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		} else if errors.Is(err, services.ErrRecipientNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrFriendRequestExists) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error sending friend request from %d to %d: %v", requesterID, payload.RecipientID, err)
			writeJSONError(w, "发送好友请求失败", http.StatusInternalServerError)
		}
		return
	}

	// The request row is committed before this response is written.
	writeJSONResponse(w, http.StatusCreated, request)
}

// AcceptFriendRequestHandler handles POST /api/v1/friend-requests/{requestID}/accept
func (h *FriendHandler) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	recipientUserID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.friendService.AcceptRequest(r.Context(), recipientUserID, requestID); err != nil {
		if errors.Is(err, services.ErrFriendRequestNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrNotRecipientOfRequest) {
			writeJSONError(w, err.Error(), http.StatusForbidden)
		} else if errors.Is(err, services.ErrRequestNotPending) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error accepting friend request %d by user %d: %v", requestID, recipientUserID, err)
			writeJSONError(w, "处理好友请求失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "好友请求已接受"})
}

// RejectFriendRequestHandler handles POST /api/v1/friend-requests/{requestID}/reject
func (h *FriendHandler) RejectFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	recipientUserID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.friendService.RejectRequest(r.Context(), recipientUserID, requestID); err != nil {
		if errors.Is(err, services.ErrFriendRequestNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrNotRecipientOfRequest) {
			writeJSONError(w, err.Error(), http.StatusForbidden)
		} else if errors.Is(err, services.ErrRequestNotPending) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error rejecting friend request %d by user %d: %v", requestID, recipientUserID, err)
			writeJSONError(w, "处理好友请求失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "好友请求已拒绝"})
}

// CancelFriendRequestHandler handles POST /api/v1/friend-requests/{requestID}/cancel
func (h *FriendHandler) CancelFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	requestID, err := parseRequestID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.friendService.CancelRequest(r.Context(), requesterID, requestID); err != nil {
		if errors.Is(err, services.ErrFriendRequestNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else if errors.Is(err, services.ErrNotRequesterOfRequest) {
			writeJSONError(w, err.Error(), http.StatusForbidden)
		} else if errors.Is(err, services.ErrRequestNotPending) {
			writeJSONError(w, err.Error(), http.StatusConflict)
		} else {
			log.Printf("Error cancelling friend request %d by user %d: %v", requestID, requesterID, err)
			writeJSONError(w, "取消好友请求失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "好友请求已取消"})
}

// ListPendingRequestsHandler handles GET /api/v1/friend-requests/pending
func (h *FriendHandler) ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	pendingRequests, err := h.friendService.ListPendingRequests(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching pending requests for user %d: %v", userID, err)
		writeJSONError(w, "获取待处理请求失败", http.StatusInternalServerError)
		return
	}

	if pendingRequests == nil {
		pendingRequests = []*models.FriendRequestWithRequester{}
	}
	writeJSONResponse(w, http.StatusOK, pendingRequests)
}

// ListOutgoingRequestsHandler handles GET /api/v1/friend-requests/outgoing
func (h *FriendHandler) ListOutgoingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	outgoing, err := h.friendService.ListOutgoingRequests(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching outgoing requests for user %d: %v", userID, err)
		writeJSONError(w, "获取已发送请求失败", http.StatusInternalServerError)
		return
	}

	if outgoing == nil {
		outgoing = []*models.FriendRequestWithRecipient{}
	}
	writeJSONResponse(w, http.StatusOK, outgoing)
}

// ListFriendsHandler handles GET /api/v1/friends
func (h *FriendHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	friendsList, err := h.friendService.GetFriendsList(r.Context(), userID)
	if err != nil {
		log.Printf("Error fetching friends list for user %d: %v", userID, err)
		writeJSONError(w, "获取好友列表失败", http.StatusInternalServerError)
		return
	}

	if friendsList == nil {
		friendsList = []*models.UserBasicInfo{} // Ensure empty list, not null, for JSON
	}
	writeJSONResponse(w, http.StatusOK, friendsList)
}

// UnfriendHandler handles DELETE /api/v1/friends/{friendID}
func (h *FriendHandler) UnfriendHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	friendID, err := strconv.ParseUint(vars["friendID"], 10, 32)
	if err != nil {
		writeJSONError(w, "无效的好友ID格式", http.StatusBadRequest)
		return
	}

	if err := h.friendService.Unfriend(r.Context(), userID, uint(friendID)); err != nil {
		if errors.Is(err, services.ErrNotFriends) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error unfriending %d by user %d: %v", friendID, userID, err)
			writeJSONError(w, "解除好友关系失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "已解除好友关系"})
}

// parseRequestID extracts the {requestID} path variable.
func parseRequestID(r *http.Request) (uint, error) {
	vars := mux.Vars(r)
	requestIDStr, ok := vars["requestID"]
	if !ok {
		return 0, errors.New("缺少好友请求ID")
	}
	requestID, err := strconv.ParseUint(requestIDStr, 10, 32)
	if err != nil {
		return 0, errors.New("无效的好友请求ID格式")
	}
	return uint(requestID), nil
}
