package discuss

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	Content   string
	Image     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, commentID int64) (comment *Comment, err error)
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
	Count(ctx context.Context, postID int64) (count int, err error)
	Update(ctx context.Context, comment *Comment) (err error)
	Delete(ctx context.Context, commentID int64) (err error)
}

type ListCommentsParams struct {
	PostID      int64
	AuthorID    int64
	NewestFirst bool
}

type CreateCommentRequest struct {
	PostID   int64
	AuthorID int64
	Content  string
	Image    string
}

func (req CreateCommentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.PostID, validation.Required),
		validation.Field(&req.AuthorID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.RuneLength(1, 2000)),
		validation.Field(&req.Image, validation.Length(0, 255)),
	)
}

type UpdateCommentRequest struct {
	CommentID    int64
	ActingUserID int64
	Content      string
}

func (req UpdateCommentRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Content, validation.Required, validation.RuneLength(1, 2000)),
	)
}

type CommentNotFoundError struct {
	ID int64
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %d not found", err.ID)
}

const (
	ReasonNotAuthor     = "not_author"
	ReasonNotOwner      = "not_owner"
	ReasonWindowExpired = "window_expired"
)

// CommentForbiddenError tells which rule rejected an edit or delete.
type CommentForbiddenError struct {
	CommentID int64
	UserID    int64
	Action    string
	Reason    string
}

func (err CommentForbiddenError) Error() string {
	switch err.Reason {
	case ReasonWindowExpired:
		return fmt.Sprintf("cannot %s comment %d after the edit window", err.Action, err.CommentID)
	case ReasonNotOwner:
		return fmt.Sprintf("user %d is neither the author of comment %d nor the owner of its post", err.UserID, err.CommentID)
	default:
		return fmt.Sprintf("user %d is not the author of comment %d", err.UserID, err.CommentID)
	}
}

type SpamDetectedError struct {
	UserID int64
}

func (err SpamDetectedError) Error() string {
	return fmt.Sprintf("user %d posted the same comment too many times", err.UserID)
}
