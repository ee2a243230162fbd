package contents

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nasermirzaei89/forumgw/authorization"
)

const (
	ActionCreatePost    = "createPost"
	ActionGetPost       = "getPost"
	ActionListPosts     = "listPosts"
	ActionUpdatePost    = "updatePost"
	ActionDeletePost    = "deletePost"
	ActionSearchPosts   = "searchPosts"
	ActionCreateModule  = "createModule"
	ActionGetModule     = "getModule"
	ActionListModules   = "listModules"
	ActionSearchModules = "searchModules"
)

const (
	objectPosts   = "posts"
	objectModules = "modules"
)

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

func (mw *AuthorizationMiddleware) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectPosts, ActionCreatePost)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	post, err := mw.next.CreatePost(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return post, nil
}

func (mw *AuthorizationMiddleware) GetPost(ctx context.Context, postID int64) (*Post, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionGetPost)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	post, err := mw.next.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return post, nil
}

func (mw *AuthorizationMiddleware) ViewPost(ctx context.Context, postID int64) (*Post, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionGetPost)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	post, err := mw.next.ViewPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return post, nil
}

func (mw *AuthorizationMiddleware) ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectPosts, ActionListPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	page, err := mw.next.ListPosts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return page, nil
}

func (mw *AuthorizationMiddleware) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(req.PostID, 10), ActionUpdatePost)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	post, err := mw.next.UpdatePost(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return post, nil
}

func (mw *AuthorizationMiddleware) DeletePost(ctx context.Context, postID, actingUserID int64) error {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionDeletePost)
	if err != nil {
		return fmt.Errorf("failed to check authorization: %w", err)
	}

	err = mw.next.DeletePost(ctx, postID, actingUserID)
	if err != nil {
		return fmt.Errorf("failed to call next method: %w", err)
	}

	return nil
}

func (mw *AuthorizationMiddleware) SearchPosts(ctx context.Context, keyword string, limit uint64) ([]*Post, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectPosts, ActionSearchPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	posts, err := mw.next.SearchPosts(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return posts, nil
}

func (mw *AuthorizationMiddleware) CreateModule(ctx context.Context, req CreateModuleRequest) (*Module, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectModules, ActionCreateModule)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	module, err := mw.next.CreateModule(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return module, nil
}

func (mw *AuthorizationMiddleware) GetModule(ctx context.Context, moduleID int64) (*Module, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(moduleID, 10), ActionGetModule)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	module, err := mw.next.GetModule(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return module, nil
}

func (mw *AuthorizationMiddleware) ListModules(ctx context.Context) ([]*Module, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectModules, ActionListModules)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	modules, err := mw.next.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return modules, nil
}

func (mw *AuthorizationMiddleware) SearchModules(ctx context.Context, keyword string, limit uint64) ([]*Module, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, objectModules, ActionSearchModules)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	modules, err := mw.next.SearchModules(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return modules, nil
}
