package discuss

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nasermirzaei89/forumgw/authorization"
)

const (
	ActionCreateComment = "createComment"
	ActionGetComment    = "getComment"
	ActionListComments  = "listComments"
	ActionCountComments = "countComments"
	ActionUpdateComment = "updateComment"
	ActionDeleteComment = "deleteComment"
)

const objectUsers = "users"

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

func (mw *AuthorizationMiddleware) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(req.PostID, 10), ActionCreateComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.CreateComment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) GetComment(ctx context.Context, commentID int64) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(commentID, 10), ActionGetComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.GetComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) ListComments(ctx context.Context, postID int64) ([]*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionListComments)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comments, err := mw.next.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comments, nil
}

func (mw *AuthorizationMiddleware) ListUserComments(ctx context.Context, authorID int64) ([]*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectUsers, ActionListComments)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comments, err := mw.next.ListUserComments(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comments, nil
}

func (mw *AuthorizationMiddleware) CountComments(ctx context.Context, postID int64) (int, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionCountComments)
	if err != nil {
		return 0, fmt.Errorf("failed to check authorization: %w", err)
	}

	count, err := mw.next.CountComments(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to call next method: %w", err)
	}

	return count, nil
}

func (mw *AuthorizationMiddleware) UpdateComment(ctx context.Context, req UpdateCommentRequest) (*Comment, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(req.CommentID, 10), ActionUpdateComment)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	comment, err := mw.next.UpdateComment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return comment, nil
}

func (mw *AuthorizationMiddleware) DeleteComment(ctx context.Context, commentID, actingUserID int64) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(commentID, 10), ActionDeleteComment)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeleteComment(ctx, commentID, actingUserID)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}
