package web

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/notifications"
)

type userView struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registeredAt"`
}

func newUserView(user *authentication.User) *userView {
	return &userView{
		ID:           user.ID,
		Username:     user.Username,
		RegisteredAt: user.RegisteredAt,
	}
}

type authorView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type moduleView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newModuleView(module *contents.Module) *moduleView {
	return &moduleView{
		ID:          module.ID,
		Name:        module.Name,
		Description: module.Description,
		CreatedAt:   module.CreatedAt,
	}
}

func newModuleViews(modules []*contents.Module) []*moduleView {
	views := make([]*moduleView, 0, len(modules))
	for _, module := range modules {
		views = append(views, newModuleView(module))
	}

	return views
}

type postView struct {
	ID           int64         `json:"id"`
	Author       *authorView   `json:"author"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	ContentHTML  string        `json:"content_html,omitempty"`
	Image        *string       `json:"image,omitempty"`
	ViewCount    int64         `json:"viewCount"`
	Likes        uint32        `json:"likes"`
	Dislikes     uint32        `json:"dislikes"`
	Modules      []*moduleView `json:"modules"`
	CommentCount *int          `json:"commentCount,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type commentView struct {
	ID        int64       `json:"id"`
	PostID    int64       `json:"postId"`
	Author    *authorView `json:"author"`
	Content   string      `json:"content"`
	Image     *string     `json:"image,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type notificationView struct {
	ID        int64              `json:"id"`
	Type      notifications.Type `json:"type"`
	PostID    int64              `json:"postId"`
	CommentID int64              `json:"commentId"`
	Content   string             `json:"content"`
	IsRead    bool               `json:"isRead"`
	CreatedAt time.Time          `json:"createdAt"`
}

func newNotificationView(n *notifications.Notification) *notificationView {
	return &notificationView{
		ID:        n.ID,
		Type:      n.Type,
		PostID:    n.PostID,
		CommentID: n.CommentID,
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// authors memoizes author lookups for the lifetime of one request.
type authors struct {
	svc   *authentication.Service
	cache map[int64]*authorView
}

func (h *Handler) newAuthors() *authors {
	return &authors{
		svc:   h.svc.Auth,
		cache: make(map[int64]*authorView),
	}
}

func (a *authors) get(ctx context.Context, userID int64) (*authorView, error) {
	if view, ok := a.cache[userID]; ok {
		return view, nil
	}

	user, err := a.svc.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	view := &authorView{ID: user.ID, Username: user.Username}
	a.cache[userID] = view

	return view, nil
}

func (h *Handler) postView(ctx context.Context, a *authors, post *contents.Post) (*postView, error) {
	author, err := a.get(ctx, post.AuthorID)
	if err != nil {
		return nil, err
	}

	return &postView{
		ID:        post.ID,
		Author:    author,
		Title:     post.Title,
		Content:   post.Content,
		Image:     post.Image,
		ViewCount: post.ViewCount,
		Likes:     post.LikeCount,
		Dislikes:  post.DislikeCount,
		Modules:   newModuleViews(post.Modules),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}, nil
}

func (h *Handler) postViews(ctx context.Context, posts []*contents.Post) ([]*postView, error) {
	a := h.newAuthors()
	views := make([]*postView, 0, len(posts))

	for _, post := range posts {
		view, err := h.postView(ctx, a, post)
		if err != nil {
			return nil, err
		}

		count, err := h.svc.Discuss.CountComments(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count comments: %w", err)
		}

		view.CommentCount = &count
		views = append(views, view)
	}

	return views, nil
}

func commentViewOf(comment *discuss.Comment, author *authorView) *commentView {
	return &commentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Author:    author,
		Content:   comment.Content,
		Image:     comment.Image,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func (h *Handler) commentViews(ctx context.Context, comments []*discuss.Comment) ([]*commentView, error) {
	a := h.newAuthors()
	views := make([]*commentView, 0, len(comments))

	for _, comment := range comments {
		author, err := a.get(ctx, comment.AuthorID)
		if err != nil {
			return nil, err
		}

		views = append(views, commentViewOf(comment, author))
	}

	return views, nil
}

func (h *Handler) renderMarkdown(source string) (string, error) {
	var buf bytes.Buffer

	err := h.markdown.Convert([]byte(source), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	return buf.String(), nil
}
