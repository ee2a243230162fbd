package notifications

import (
	"context"
	"fmt"
	"time"
)

type Type string

const (
	TypeCommentOnPost Type = "comment_on_post"
	TypeTagInComment  Type = "tag_in_comment"
)

type Notification struct {
	ID          int64
	RecipientID int64
	Type        Type
	PostID      int64
	CommentID   int64
	Content     string
	IsRead      bool
	CreatedAt   time.Time
}

// Draft is a notification that has not been stored yet.
type Draft struct {
	RecipientID int64
	Type        Type
	PostID      int64
	CommentID   int64
	Content     string
}

type NotificationRepository interface {
	InsertMany(ctx context.Context, notifications []*Notification) (err error)
	Find(ctx context.Context, notificationID int64) (notification *Notification, err error)
	ListByRecipient(ctx context.Context, recipientID int64, limit uint64) (notifications []*Notification, err error)
	CountUnread(ctx context.Context, recipientID int64) (count int, err error)
	MarkAsRead(ctx context.Context, notificationID int64) (err error)
	MarkAllAsRead(ctx context.Context, recipientID int64) (err error)
}

type NotificationNotFoundError struct {
	ID int64
}

func (err NotificationNotFoundError) Error() string {
	return fmt.Sprintf("notification with id %d not found", err.ID)
}

type NotificationForbiddenError struct {
	NotificationID int64
	UserID         int64
}

func (err NotificationForbiddenError) Error() string {
	return fmt.Sprintf("notification %d does not belong to user %d", err.NotificationID, err.UserID)
}
