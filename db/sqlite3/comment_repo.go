package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forumgw/discuss"
)

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID        = "id"
	commentFieldPostID    = "post_id"
	commentFieldAuthorID  = "author_id"
	commentFieldContent   = "content"
	commentFieldImage     = "image"
	commentFieldCreatedAt = "created_at"
	commentFieldUpdatedAt = "updated_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldPostID,
		commentFieldAuthorID,
		commentFieldContent,
		commentFieldImage,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var (
		comment discuss.Comment
		image   sql.NullString
	)

	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.Content,
		&image,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if image.Valid {
		comment.Image = &image.String
	}

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(
			commentFieldPostID,
			commentFieldAuthorID,
			commentFieldContent,
			commentFieldImage,
			commentFieldCreatedAt,
			commentFieldUpdatedAt,
		).
		Values(
			comment.PostID,
			comment.AuthorID,
			comment.Content,
			comment.Image,
			comment.CreatedAt.UTC(),
			comment.UpdatedAt.UTC(),
		)

	result, err := q.RunWith(repo.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	comment.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *CommentRepository) Find(ctx context.Context, commentID int64) (*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: commentID})

	comment, err := scanComment(q.RunWith(repo.db).QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &discuss.CommentNotFoundError{ID: commentID}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) List(ctx context.Context, params *discuss.ListCommentsParams) ([]*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments)

	if params.PostID != 0 {
		q = q.Where(sq.Eq{commentFieldPostID: params.PostID})
	}

	if params.AuthorID != 0 {
		q = q.Where(sq.Eq{commentFieldAuthorID: params.AuthorID})
	}

	if params.NewestFirst {
		q = q.OrderBy(commentFieldCreatedAt+" DESC", commentFieldID+" DESC")
	} else {
		q = q.OrderBy(commentFieldCreatedAt+" ASC", commentFieldID+" ASC")
	}

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}

	defer closeRows(ctx, rows, "comment")

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate comment rows: %w", err)
	}

	return comments, nil
}

func (repo *CommentRepository) Count(ctx context.Context, postID int64) (int, error) {
	var count int

	err := sq.Select("COUNT(*)").
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postID}).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}

func (repo *CommentRepository) Update(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Update(tableComments).
		Set(commentFieldContent, comment.Content).
		Set(commentFieldUpdatedAt, comment.UpdatedAt.UTC()).
		Where(sq.Eq{commentFieldID: comment.ID})

	return execAffectingOne(ctx, q.RunWith(repo.db), &discuss.CommentNotFoundError{ID: comment.ID})
}

func (repo *CommentRepository) Delete(ctx context.Context, commentID int64) error {
	return inTx(ctx, repo.db, func(tx *sql.Tx) error {
		_, err := sq.Delete(tableNotifications).
			Where(sq.Eq{notificationFieldCommentID: commentID}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete comment notifications: %w", err)
		}

		q := sq.Delete(tableComments).Where(sq.Eq{commentFieldID: commentID})

		return execAffectingOne(ctx, q.RunWith(tx), &discuss.CommentNotFoundError{ID: commentID})
	})
}
