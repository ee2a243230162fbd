package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forumgw/notifications"
)

const tableNotifications = "notifications"

type NotificationRepository struct {
	db *sql.DB
}

var _ notifications.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const (
	notificationFieldID          = "id"
	notificationFieldRecipientID = "recipient_id"
	notificationFieldType        = "type"
	notificationFieldPostID      = "post_id"
	notificationFieldCommentID   = "comment_id"
	notificationFieldContent     = "content"
	notificationFieldIsRead      = "is_read"
	notificationFieldCreatedAt   = "created_at"
)

func notificationColumns() []string {
	return []string{
		notificationFieldID,
		notificationFieldRecipientID,
		notificationFieldType,
		notificationFieldPostID,
		notificationFieldCommentID,
		notificationFieldContent,
		notificationFieldIsRead,
		notificationFieldCreatedAt,
	}
}

func scanNotification(row sq.RowScanner) (*notifications.Notification, error) {
	var notification notifications.Notification

	err := row.Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.Type,
		&notification.PostID,
		&notification.CommentID,
		&notification.Content,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &notification, nil
}

// InsertMany stores all notifications or none of them.
func (repo *NotificationRepository) InsertMany(ctx context.Context, items []*notifications.Notification) error {
	if len(items) == 0 {
		return nil
	}

	return inTx(ctx, repo.db, func(tx *sql.Tx) error {
		for _, item := range items {
			q := sq.Insert(tableNotifications).
				Columns(
					notificationFieldRecipientID,
					notificationFieldType,
					notificationFieldPostID,
					notificationFieldCommentID,
					notificationFieldContent,
					notificationFieldIsRead,
					notificationFieldCreatedAt,
				).
				Values(
					item.RecipientID,
					string(item.Type),
					item.PostID,
					item.CommentID,
					item.Content,
					item.IsRead,
					item.CreatedAt.UTC(),
				)

			result, err := q.RunWith(tx).ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to exec insert: %w", err)
			}

			item.ID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}

		return nil
	})
}

func (repo *NotificationRepository) Find(ctx context.Context, notificationID int64) (*notifications.Notification, error) {
	q := sq.Select(notificationColumns()...).
		From(tableNotifications).
		Where(sq.Eq{notificationFieldID: notificationID})

	notification, err := scanNotification(q.RunWith(repo.db).QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &notifications.NotificationNotFoundError{ID: notificationID}
		}

		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	return notification, nil
}

func (repo *NotificationRepository) ListByRecipient(
	ctx context.Context,
	recipientID int64,
	limit uint64,
) ([]*notifications.Notification, error) {
	q := sq.Select(notificationColumns()...).
		From(tableNotifications).
		Where(sq.Eq{notificationFieldRecipientID: recipientID}).
		OrderBy(notificationFieldCreatedAt+" DESC", notificationFieldID+" DESC").
		Limit(limit)

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer closeRows(ctx, rows, "notification")

	items := make([]*notifications.Notification, 0)

	for rows.Next() {
		item, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}

	return items, nil
}

func (repo *NotificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	var count int

	err := sq.Select("COUNT(*)").
		From(tableNotifications).
		Where(sq.Eq{notificationFieldRecipientID: recipientID, notificationFieldIsRead: false}).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (repo *NotificationRepository) MarkAsRead(ctx context.Context, notificationID int64) error {
	q := sq.Update(tableNotifications).
		Set(notificationFieldIsRead, true).
		Where(sq.Eq{notificationFieldID: notificationID})

	return execAffectingOne(ctx, q.RunWith(repo.db), &notifications.NotificationNotFoundError{ID: notificationID})
}

func (repo *NotificationRepository) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	_, err := sq.Update(tableNotifications).
		Set(notificationFieldIsRead, true).
		Where(sq.Eq{notificationFieldRecipientID: recipientID, notificationFieldIsRead: false}).
		RunWith(repo.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	return nil
}
