package apiserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"socialnet/internal/middleware"
	"socialnet/internal/services"

	"github.com/gorilla/mux"
)

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(ns services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// ListNotificationsHandler handles GET /api/v1/notifications?limit=
func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.notificationService.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		log.Printf("Error listing notifications for user %d: %v", userID, err)
		writeJSONError(w, "获取通知列表失败", http.StatusInternalServerError)
		return
	}

	if notifications == nil {
		notifications = []services.NotificationWithActor{}
	}
	writeJSONResponse(w, http.StatusOK, notifications)
}

// MarkNotificationReadHandler handles POST /api/v1/notifications/{notificationID}/read
func (h *NotificationHandler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "无法从上下文中获取用户ID", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	notificationID, err := strconv.ParseUint(vars["notificationID"], 10, 32)
	if err != nil {
		writeJSONError(w, "无效的通知ID格式", http.StatusBadRequest)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), userID, uint(notificationID)); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error marking notification %d read for user %d: %v", notificationID, userID, err)
			writeJSONError(w, "标记通知已读失败", http.StatusInternalServerError)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "通知已标记为已读"})
}
