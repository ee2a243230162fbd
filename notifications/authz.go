package notifications

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nasermirzaei89/forumgw/authorization"
)

const (
	ActionListNotifications = "listNotifications"
	ActionCountUnread       = "countUnread"
	ActionMarkAsRead        = "markAsRead"
	ActionMarkAllAsRead     = "markAllAsRead"
)

const objectNotifications = "notifications"

type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

func (mw *AuthorizationMiddleware) ListNotifications(ctx context.Context, userID int64) ([]*Notification, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectNotifications, ActionListNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	notifications, err := mw.next.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return notifications, nil
}

func (mw *AuthorizationMiddleware) CountUnread(ctx context.Context, userID int64) (int, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectNotifications, ActionCountUnread)
	if err != nil {
		return 0, fmt.Errorf("failed to check authorization: %w", err)
	}

	count, err := mw.next.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to call next method: %w", err)
	}

	return count, nil
}

func (mw *AuthorizationMiddleware) MarkAsRead(ctx context.Context, notificationID, userID int64) (*Notification, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(notificationID, 10), ActionMarkAsRead)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	notification, err := mw.next.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return notification, nil
}

func (mw *AuthorizationMiddleware) MarkAllAsRead(ctx context.Context, userID int64) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectNotifications, ActionMarkAllAsRead)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.MarkAllAsRead(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}
