package web

import (
	"net/http"
)

func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	items, err := h.svc.Notifications.ListNotifications(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "failed to list notifications", err)

		return
	}

	unread, err := h.svc.Notifications.CountUnread(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "failed to count unread notifications", err)

		return
	}

	views := make([]*notificationView, 0, len(items))
	for _, item := range items {
		views = append(views, newNotificationView(item))
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"notifications": views,
		"unreadCount":   unread,
	})
}

func (h *Handler) HandleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	notificationID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse notification id", err)

		return
	}

	notification, err := h.svc.Notifications.MarkAsRead(r.Context(), notificationID, currentUserID(r))
	if err != nil {
		h.writeError(w, r, "failed to mark notification as read", err)

		return
	}

	writeJSON(w, r, http.StatusOK, newNotificationView(notification))
}

func (h *Handler) HandleMarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Notifications.MarkAllAsRead(r.Context(), currentUserID(r))
	if err != nil {
		h.writeError(w, r, "failed to mark all notifications as read", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
