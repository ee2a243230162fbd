package discuss

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/metrics"
)

const ServiceName = "github.com/nasermirzaei89/forumgw/discuss"

type Service interface {
	CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	GetComment(ctx context.Context, commentID int64) (*Comment, error)
	ListComments(ctx context.Context, postID int64) ([]*Comment, error)
	ListUserComments(ctx context.Context, authorID int64) ([]*Comment, error)
	CountComments(ctx context.Context, postID int64) (int, error)
	UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error)
	DeleteComment(ctx context.Context, commentID, actingUserID int64) error
}

type PostFinder interface {
	Find(ctx context.Context, postID int64) (*contents.Post, error)
}

// SpamGuard reports whether a user may post content now.
type SpamGuard interface {
	Allow(ctx context.Context, userID int64, content string) (bool, error)
}

// CommentCreatedHook runs after a comment is stored. Hooks handle their own
// failures.
type CommentCreatedHook interface {
	CommentCreated(ctx context.Context, comment *Comment)
}

type BaseService struct {
	commentRepo CommentRepository
	postFinder  PostFinder
	guard       *Guard
	spamGuard   SpamGuard
	hooks       []CommentCreatedHook
}

var _ Service = (*BaseService)(nil)

func NewService(commentRepo CommentRepository, postFinder PostFinder, guard *Guard) *BaseService {
	return &BaseService{
		commentRepo: commentRepo,
		postFinder:  postFinder,
		guard:       guard,
	}
}

func (svc *BaseService) SetSpamGuard(spamGuard SpamGuard) {
	svc.spamGuard = spamGuard
}

func (svc *BaseService) AddCommentCreatedHook(hook CommentCreatedHook) {
	svc.hooks = append(svc.hooks, hook)
}

func (svc *BaseService) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	req.Content = strings.TrimSpace(req.Content)
	req.Image = strings.TrimSpace(req.Image)

	err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid create comment request: %w", err)
	}

	_, err = svc.postFinder.Find(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	err = svc.checkSpam(ctx, req.AuthorID, req.Content)
	if err != nil {
		return nil, err
	}

	now := svc.guard.Now()

	comment := &Comment{
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Image != "" {
		comment.Image = &req.Image
	}

	err = svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	metrics.CommentsCreated.Inc()

	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range svc.hooks {
		hook.CommentCreated(hookCtx, comment)
	}

	return comment, nil
}

func (svc *BaseService) checkSpam(ctx context.Context, userID int64, content string) error {
	if svc.spamGuard == nil {
		return nil
	}

	allowed, err := svc.spamGuard.Allow(ctx, userID, content)
	if err != nil {
		slog.WarnContext(ctx, "spam check failed, allowing comment", "userId", userID, "error", err)

		return nil
	}

	if !allowed {
		metrics.SpamRejections.WithLabelValues("comment").Inc()

		return &SpamDetectedError{UserID: userID}
	}

	return nil
}

func (svc *BaseService) GetComment(ctx context.Context, commentID int64) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

func (svc *BaseService) ListComments(ctx context.Context, postID int64) ([]*Comment, error) {
	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{PostID: postID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// ListUserComments returns the comments written by a user, newest first.
func (svc *BaseService) ListUserComments(ctx context.Context, authorID int64) ([]*Comment, error) {
	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{AuthorID: authorID, NewestFirst: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list user comments: %w", err)
	}

	return comments, nil
}

func (svc *BaseService) CountComments(ctx context.Context, postID int64) (int, error) {
	count, err := svc.commentRepo.Count(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}

func (svc *BaseService) UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, req.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	err = svc.guard.CheckEdit(comment, req.ActingUserID, svc.guard.Now())
	if err != nil {
		return nil, err
	}

	req.Content = strings.TrimSpace(req.Content)

	err = req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid update comment request: %w", err)
	}

	return svc.ApplyEdit(ctx, comment, req.Content)
}

// ApplyEdit replaces the content of comment and stores it. Callers check
// permission first.
func (svc *BaseService) ApplyEdit(ctx context.Context, comment *Comment, content string) (*Comment, error) {
	comment.Content = content
	comment.UpdatedAt = svc.guard.Now()

	err := svc.commentRepo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

func (svc *BaseService) DeleteComment(ctx context.Context, commentID, actingUserID int64) error {
	comment, err := svc.commentRepo.Find(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}

	post, err := svc.postFinder.Find(ctx, comment.PostID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	err = svc.guard.CheckDelete(comment, post, actingUserID, svc.guard.Now())
	if err != nil {
		return err
	}

	err = svc.commentRepo.Delete(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}
