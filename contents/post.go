package contents

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Post struct {
	ID           int64
	AuthorID     int64
	Title        string
	Content      string
	Image        *string
	ViewCount    int64
	LikeCount    uint32
	DislikeCount uint32
	Modules      []*Module
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PostFilter selects the ordering of a post listing.
type PostFilter string

const (
	FilterNewest       PostFilter = "newest"
	FilterMostView     PostFilter = "most_view"
	FilterMostLiked    PostFilter = "most_liked"
	FilterMostDisliked PostFilter = "most_disliked"
)

const DefaultPerPage = 10

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID int64) (post *Post, err error)
	List(ctx context.Context, params *ListPostsParams) (posts []*Post, total int, err error)
	Update(ctx context.Context, post *Post) (err error)
	Delete(ctx context.Context, postID int64) (err error)
	IncrementViewCount(ctx context.Context, postID int64) (err error)
	Search(ctx context.Context, keyword string, limit uint64) (posts []*Post, err error)
}

type ListPostsParams struct {
	Filter   PostFilter
	ModuleID int64
	AuthorID int64
	Limit    uint64
	Offset   uint64
}

type CreatePostRequest struct {
	AuthorID  int64
	Title     string
	Content   string
	Image     string
	ModuleIDs []int64
}

func (req CreatePostRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.AuthorID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(5, 255)),
		validation.Field(&req.Content, validation.Length(0, 20000)),
		validation.Field(&req.Image, validation.Length(0, 255)),
	)
}

type UpdatePostRequest struct {
	PostID       int64
	ActingUserID int64
	Title        string
	Content      string
}

func (req UpdatePostRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, validation.Required, validation.Length(5, 255)),
		validation.Field(&req.Content, validation.Length(0, 20000)),
	)
}

type ListPostsRequest struct {
	Filter   PostFilter
	ModuleID int64
	AuthorID int64
	Page     int
	PerPage  int
}

func (req ListPostsRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Filter, validation.In(FilterNewest, FilterMostView, FilterMostLiked, FilterMostDisliked)),
		validation.Field(&req.Page, validation.Min(0)),
		validation.Field(&req.PerPage, validation.Min(0), validation.Max(100)),
	)
}

type PostPage struct {
	Posts   []*Post
	Page    int
	PerPage int
	Total   int
}

type PostNotFoundError struct {
	ID int64
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %d not found", err.ID)
}

type PostForbiddenError struct {
	PostID int64
	UserID int64
	Action string
}

func (err PostForbiddenError) Error() string {
	return fmt.Sprintf("user %d may not %s post %d", err.UserID, err.Action, err.PostID)
}
