package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/metrics"
)

const ServiceName = "github.com/nasermirzaei89/forumgw/notifications"

const listLimit = 50

type Service interface {
	ListNotifications(ctx context.Context, userID int64) ([]*Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) (*Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) error
}

type UserFinder interface {
	UserDirectory
	GetUser(ctx context.Context, userID int64) (*authentication.User, error)
}

type BaseService struct {
	notificationRepo NotificationRepository
	users            UserFinder
	posts            discuss.PostFinder
	deriver          *Deriver
	clock            clockwork.Clock
}

var (
	_ Service                    = (*BaseService)(nil)
	_ discuss.CommentCreatedHook = (*BaseService)(nil)
)

func NewService(
	notificationRepo NotificationRepository,
	users UserFinder,
	posts discuss.PostFinder,
	clock clockwork.Clock,
) *BaseService {
	return &BaseService{
		notificationRepo: notificationRepo,
		users:            users,
		posts:            posts,
		deriver:          NewDeriver(users),
		clock:            clock,
	}
}

// Notify derives and stores the notifications of a new comment.
func (svc *BaseService) Notify(ctx context.Context, comment *discuss.Comment) ([]*Notification, error) {
	author, err := svc.users.GetUser(ctx, comment.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment author: %w", err)
	}

	post, err := svc.posts.Find(ctx, comment.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	drafts, err := svc.deriver.Derive(ctx, comment, author, post)
	if err != nil {
		return nil, fmt.Errorf("failed to derive notifications: %w", err)
	}

	if len(drafts) == 0 {
		return []*Notification{}, nil
	}

	now := svc.clock.Now()
	notifications := make([]*Notification, 0, len(drafts))

	for _, draft := range drafts {
		notifications = append(notifications, &Notification{
			RecipientID: draft.RecipientID,
			Type:        draft.Type,
			PostID:      draft.PostID,
			CommentID:   draft.CommentID,
			Content:     draft.Content,
			IsRead:      false,
			CreatedAt:   now,
		})
	}

	err = svc.notificationRepo.InsertMany(ctx, notifications)
	if err != nil {
		return nil, fmt.Errorf("failed to insert notifications: %w", err)
	}

	for _, notification := range notifications {
		metrics.NotificationsCreated.WithLabelValues(string(notification.Type)).Inc()
	}

	return notifications, nil
}

// CommentCreated notifies on a best-effort basis. Failures are logged and
// counted but never reach the commenter.
func (svc *BaseService) CommentCreated(ctx context.Context, comment *discuss.Comment) {
	_, err := svc.Notify(ctx, comment)
	if err != nil {
		metrics.NotificationFailures.Inc()
		slog.ErrorContext(ctx, "failed to notify about comment",
			"commentId", comment.ID,
			"postId", comment.PostID,
			"error", err,
		)
	}
}

func (svc *BaseService) ListNotifications(ctx context.Context, userID int64) ([]*Notification, error) {
	notifications, err := svc.notificationRepo.ListByRecipient(ctx, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func (svc *BaseService) CountUnread(ctx context.Context, userID int64) (int, error) {
	count, err := svc.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (svc *BaseService) MarkAsRead(ctx context.Context, notificationID, userID int64) (*Notification, error) {
	notification, err := svc.notificationRepo.Find(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}

	if notification.RecipientID != userID {
		return nil, &NotificationForbiddenError{NotificationID: notificationID, UserID: userID}
	}

	if notification.IsRead {
		return notification, nil
	}

	err = svc.notificationRepo.MarkAsRead(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}

	notification.IsRead = true

	return notification, nil
}

func (svc *BaseService) MarkAllAsRead(ctx context.Context, userID int64) error {
	err := svc.notificationRepo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	return nil
}
