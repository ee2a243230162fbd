package contents

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
)

const ServiceName = "github.com/nasermirzaei89/forumgw/contents"

type Service interface {
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	GetPost(ctx context.Context, postID int64) (*Post, error)
	ViewPost(ctx context.Context, postID int64) (*Post, error)
	ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error)
	UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, postID, actingUserID int64) error
	SearchPosts(ctx context.Context, keyword string, limit uint64) ([]*Post, error)
	CreateModule(ctx context.Context, req CreateModuleRequest) (*Module, error)
	GetModule(ctx context.Context, moduleID int64) (*Module, error)
	ListModules(ctx context.Context) ([]*Module, error)
	SearchModules(ctx context.Context, keyword string, limit uint64) ([]*Module, error)
}

type BaseService struct {
	postRepo   PostRepository
	moduleRepo ModuleRepository
	clock      clockwork.Clock
}

var _ Service = (*BaseService)(nil)

func NewService(postRepo PostRepository, moduleRepo ModuleRepository, clock clockwork.Clock) *BaseService {
	return &BaseService{
		postRepo:   postRepo,
		moduleRepo: moduleRepo,
		clock:      clock,
	}
}

func (svc *BaseService) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	req.Title = strings.TrimSpace(req.Title)

	err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid create post request: %w", err)
	}

	modules, err := svc.resolveModules(ctx, req.ModuleIDs)
	if err != nil {
		return nil, err
	}

	now := svc.clock.Now()

	post := &Post{
		AuthorID:  req.AuthorID,
		Title:     req.Title,
		Content:   req.Content,
		Modules:   modules,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Image != "" {
		post.Image = &req.Image
	}

	err = svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (svc *BaseService) resolveModules(ctx context.Context, moduleIDs []int64) ([]*Module, error) {
	if len(moduleIDs) == 0 {
		return []*Module{}, nil
	}

	modules, err := svc.moduleRepo.FindMany(ctx, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find modules: %w", err)
	}

	found := make(map[int64]struct{}, len(modules))
	for _, module := range modules {
		found[module.ID] = struct{}{}
	}

	for _, id := range moduleIDs {
		if _, ok := found[id]; !ok {
			return nil, &ModuleNotFoundError{ID: id}
		}
	}

	return modules, nil
}

func (svc *BaseService) GetPost(ctx context.Context, postID int64) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

// ViewPost returns the post after counting one more view of it.
func (svc *BaseService) ViewPost(ctx context.Context, postID int64) (*Post, error) {
	err := svc.postRepo.IncrementViewCount(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment view count: %w", err)
	}

	return svc.GetPost(ctx, postID)
}

func (svc *BaseService) ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error) {
	err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid list posts request: %w", err)
	}

	if req.Filter == "" {
		req.Filter = FilterNewest
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PerPage < 1 {
		req.PerPage = DefaultPerPage
	}

	posts, total, err := svc.postRepo.List(ctx, &ListPostsParams{
		Filter:   req.Filter,
		ModuleID: req.ModuleID,
		AuthorID: req.AuthorID,
		Limit:    uint64(req.PerPage),
		Offset:   uint64((req.Page - 1) * req.PerPage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &PostPage{
		Posts:   posts,
		Page:    req.Page,
		PerPage: req.PerPage,
		Total:   total,
	}, nil
}

func (svc *BaseService) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != req.ActingUserID {
		return nil, &PostForbiddenError{PostID: post.ID, UserID: req.ActingUserID, Action: "update"}
	}

	req.Title = strings.TrimSpace(req.Title)

	err = req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid update post request: %w", err)
	}

	post.Title = req.Title
	post.Content = req.Content
	post.UpdatedAt = svc.clock.Now()

	err = svc.postRepo.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

func (svc *BaseService) DeletePost(ctx context.Context, postID, actingUserID int64) error {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != actingUserID {
		return &PostForbiddenError{PostID: post.ID, UserID: actingUserID, Action: "delete"}
	}

	err = svc.postRepo.Delete(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return nil
}

func (svc *BaseService) SearchPosts(ctx context.Context, keyword string, limit uint64) ([]*Post, error) {
	posts, err := svc.postRepo.Search(ctx, strings.TrimSpace(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}

	return posts, nil
}

func (svc *BaseService) CreateModule(ctx context.Context, req CreateModuleRequest) (*Module, error) {
	req.Name = strings.TrimSpace(req.Name)

	err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid create module request: %w", err)
	}

	module := &Module{
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   svc.clock.Now(),
	}

	err = svc.moduleRepo.Insert(ctx, module)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}

	return module, nil
}

func (svc *BaseService) GetModule(ctx context.Context, moduleID int64) (*Module, error) {
	module, err := svc.moduleRepo.Find(ctx, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find module: %w", err)
	}

	return module, nil
}

func (svc *BaseService) ListModules(ctx context.Context) ([]*Module, error) {
	modules, err := svc.moduleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	return modules, nil
}

func (svc *BaseService) SearchModules(ctx context.Context, keyword string, limit uint64) ([]*Module, error) {
	modules, err := svc.moduleRepo.Search(ctx, strings.TrimSpace(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search modules: %w", err)
	}

	return modules, nil
}
