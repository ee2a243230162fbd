package contents_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jonboulle/clockwork"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*contents.Post
	params *contents.ListPostsParams
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: map[int64]*contents.Post{}}
}

func (repo *memPostRepo) Insert(_ context.Context, post *contents.Post) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.nextID++
	post.ID = repo.nextID
	clone := *post
	repo.posts[post.ID] = &clone

	return nil
}

func (repo *memPostRepo) Find(_ context.Context, postID int64) (*contents.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	post, ok := repo.posts[postID]
	if !ok {
		return nil, &contents.PostNotFoundError{ID: postID}
	}

	clone := *post

	return &clone, nil
}

func (repo *memPostRepo) List(_ context.Context, params *contents.ListPostsParams) ([]*contents.Post, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.params = params
	posts := make([]*contents.Post, 0, len(repo.posts))

	for _, post := range repo.posts {
		posts = append(posts, post)
	}

	return posts, len(posts), nil
}

func (repo *memPostRepo) Update(_ context.Context, post *contents.Post) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	clone := *post
	repo.posts[post.ID] = &clone

	return nil
}

func (repo *memPostRepo) Delete(_ context.Context, postID int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.posts, postID)

	return nil
}

func (repo *memPostRepo) IncrementViewCount(_ context.Context, postID int64) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	post, ok := repo.posts[postID]
	if !ok {
		return &contents.PostNotFoundError{ID: postID}
	}

	post.ViewCount++

	return nil
}

func (repo *memPostRepo) Search(_ context.Context, keyword string, _ uint64) ([]*contents.Post, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	posts := make([]*contents.Post, 0)

	for _, post := range repo.posts {
		if strings.Contains(post.Title, keyword) {
			posts = append(posts, post)
		}
	}

	return posts, nil
}

type memModuleRepo struct {
	modules []*contents.Module
}

func (repo *memModuleRepo) Insert(_ context.Context, module *contents.Module) error {
	module.ID = int64(len(repo.modules) + 1)
	repo.modules = append(repo.modules, module)

	return nil
}

func (repo *memModuleRepo) Find(_ context.Context, moduleID int64) (*contents.Module, error) {
	for _, module := range repo.modules {
		if module.ID == moduleID {
			return module, nil
		}
	}

	return nil, &contents.ModuleNotFoundError{ID: moduleID}
}

func (repo *memModuleRepo) FindMany(_ context.Context, moduleIDs []int64) ([]*contents.Module, error) {
	result := make([]*contents.Module, 0)

	for _, module := range repo.modules {
		for _, id := range moduleIDs {
			if module.ID == id {
				result = append(result, module)
			}
		}
	}

	return result, nil
}

func (repo *memModuleRepo) List(context.Context) ([]*contents.Module, error) {
	return repo.modules, nil
}

func (repo *memModuleRepo) Search(_ context.Context, keyword string, _ uint64) ([]*contents.Module, error) {
	result := make([]*contents.Module, 0)

	for _, module := range repo.modules {
		if strings.Contains(module.Name, keyword) {
			result = append(result, module)
		}
	}

	return result, nil
}

func newService(t *testing.T) (*contents.BaseService, *memPostRepo, *memModuleRepo, *clockwork.FakeClock) {
	t.Helper()

	postRepo := newMemPostRepo()
	moduleRepo := &memModuleRepo{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	return contents.NewService(postRepo, moduleRepo, clock), postRepo, moduleRepo, clock
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newService(t)

	module, err := svc.CreateModule(ctx, contents.CreateModuleRequest{Name: "Algorithms"})
	require.NoError(t, err)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{
		AuthorID:  1,
		Title:     "  Big O questions  ",
		Content:   "How do I reason about amortized cost?",
		Image:     "uploads/graph.png",
		ModuleIDs: []int64{module.ID},
	})
	require.NoError(t, err)

	assert.NotZero(t, post.ID)
	assert.Equal(t, "Big O questions", post.Title)
	assert.Equal(t, clock.Now(), post.CreatedAt)
	require.NotNil(t, post.Image)
	assert.Equal(t, "uploads/graph.png", *post.Image)
	require.Len(t, post.Modules, 1)
	assert.Equal(t, "Algorithms", post.Modules[0].Name)

	t.Run("short title", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: 1, Title: "Hey"})
		require.Error(t, err)

		var validationErrs validation.Errors
		require.ErrorAs(t, err, &validationErrs)
		assert.Contains(t, validationErrs, "Title")
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, contents.CreatePostRequest{
			AuthorID:  1,
			Title:     "Graph theory",
			ModuleIDs: []int64{42},
		})
		require.Error(t, err)

		var notFoundErr *contents.ModuleNotFoundError
		require.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, int64(42), notFoundErr.ID)
	})
}

func TestViewPost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: 1, Title: "Exam schedule"})
	require.NoError(t, err)

	_, err = svc.ViewPost(ctx, post.ID)
	require.NoError(t, err)

	viewed, err := svc.ViewPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), viewed.ViewCount)

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ViewCount)

	_, err = svc.ViewPost(ctx, 999)

	var notFoundErr *contents.PostNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestListPosts_Defaults(t *testing.T) {
	ctx := context.Background()
	svc, postRepo, _, _ := newService(t)

	page, err := svc.ListPosts(ctx, contents.ListPostsRequest{})
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, contents.DefaultPerPage, page.PerPage)
	assert.Equal(t, contents.FilterNewest, postRepo.params.Filter)
	assert.Equal(t, uint64(0), postRepo.params.Offset)

	_, err = svc.ListPosts(ctx, contents.ListPostsRequest{Filter: contents.FilterMostLiked, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), postRepo.params.Offset)

	_, err = svc.ListPosts(ctx, contents.ListPostsRequest{Filter: "oldest"})
	require.Error(t, err)
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, clock := newService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: 1, Title: "Lab partners"})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	updated, err := svc.UpdatePost(ctx, contents.UpdatePostRequest{
		PostID:       post.ID,
		ActingUserID: 1,
		Title:        "Lab partners wanted",
		Content:      "Anyone for Thursday?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Lab partners wanted", updated.Title)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)

	_, err = svc.UpdatePost(ctx, contents.UpdatePostRequest{
		PostID:       post.ID,
		ActingUserID: 2,
		Title:        "Hijacked title",
	})

	var forbiddenErr *contents.PostForbiddenError
	require.ErrorAs(t, err, &forbiddenErr)
	assert.Equal(t, "update", forbiddenErr.Action)
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	post, err := svc.CreatePost(ctx, contents.CreatePostRequest{AuthorID: 1, Title: "Old notes"})
	require.NoError(t, err)

	err = svc.DeletePost(ctx, post.ID, 2)

	var forbiddenErr *contents.PostForbiddenError
	require.ErrorAs(t, err, &forbiddenErr)

	err = svc.DeletePost(ctx, post.ID, 1)
	require.NoError(t, err)

	_, err = svc.GetPost(ctx, post.ID)

	var notFoundErr *contents.PostNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestSearchModules(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	for _, name := range []string{"Databases", "Distributed Systems", "Compilers"} {
		_, err := svc.CreateModule(ctx, contents.CreateModuleRequest{Name: name})
		require.NoError(t, err)
	}

	modules, err := svc.SearchModules(ctx, " Dis ", 10)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Distributed Systems", modules[0].Name)

	_, err = svc.CreateModule(ctx, contents.CreateModuleRequest{Name: "   "})
	require.Error(t, err)
}
