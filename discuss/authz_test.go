package discuss_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/authorization/casbin"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/stretchr/testify/require"
)

type stubService struct{}

func (s *stubService) CreateComment(_ context.Context, req discuss.CreateCommentRequest) (*discuss.Comment, error) {
	return &discuss.Comment{
		ID:       1,
		PostID:   req.PostID,
		AuthorID: req.AuthorID,
		Content:  req.Content,
	}, nil
}

func (s *stubService) GetComment(_ context.Context, commentID int64) (*discuss.Comment, error) {
	return &discuss.Comment{ID: commentID}, nil
}

func (s *stubService) ListComments(context.Context, int64) ([]*discuss.Comment, error) {
	return []*discuss.Comment{}, nil
}

func (s *stubService) ListUserComments(context.Context, int64) ([]*discuss.Comment, error) {
	return []*discuss.Comment{}, nil
}

func (s *stubService) CountComments(context.Context, int64) (int, error) {
	return 0, nil
}

func (s *stubService) UpdateComment(_ context.Context, req discuss.UpdateCommentRequest) (*discuss.Comment, error) {
	return &discuss.Comment{ID: req.CommentID, Content: req.Content}, nil
}

func (s *stubService) DeleteComment(context.Context, int64, int64) error {
	return nil
}

func TestAuthorizationMiddleware(t *testing.T) {
	ctx := context.Background()

	tmpFile := filepath.Join(t.TempDir(), "policy.csv")
	content := []byte(`g, system:anonymous, system:unauthenticated

p, system:authenticated, github.com/nasermirzaei89/forumgw/discuss, *, createComment
p, system:authenticated, github.com/nasermirzaei89/forumgw/discuss, *, updateComment
p, system:authenticated, github.com/nasermirzaei89/forumgw/discuss, *, deleteComment
p, system:authenticated, github.com/nasermirzaei89/forumgw/discuss, *, listComments
p, system:unauthenticated, github.com/nasermirzaei89/forumgw/discuss, *, listComments
p, system:authenticated, github.com/nasermirzaei89/forumgw/discuss, *, countComments
p, system:unauthenticated, github.com/nasermirzaei89/forumgw/discuss, *, countComments
`)

	err := os.WriteFile(tmpFile, content, 0o600)
	require.NoError(t, err)

	provider, err := casbin.NewAuthorizationProvider(fileadapter.NewAdapter(tmpFile))
	require.NoError(t, err)

	authzSvc, err := authorization.NewService(provider)
	require.NoError(t, err)

	client := authorization.NewClient(authzSvc)
	svc := discuss.NewAuthorizationMiddleware(client, &stubService{})

	var userID int64 = 7

	err = client.AddToGroup(ctx, authcontext.SubjectOf(userID), authcontext.Authenticated)
	require.NoError(t, err)

	anonymousCtx := ctx
	authenticatedCtx := authcontext.WithUserID(ctx, userID)

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.CreateComment(anonymousCtx, discuss.CreateCommentRequest{PostID: 1, Content: "comment"})

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)

		err = svc.DeleteComment(anonymousCtx, 1, 0)
		require.ErrorAs(t, err, &accessDeniedErr)

		_, err = svc.ListComments(anonymousCtx, 1)
		require.NoError(t, err)

		_, err = svc.CountComments(anonymousCtx, 1)
		require.NoError(t, err)

		_, err = svc.ListUserComments(anonymousCtx, userID)
		require.NoError(t, err)
	})

	t.Run("authenticated", func(t *testing.T) {
		_, err := svc.CreateComment(authenticatedCtx, discuss.CreateCommentRequest{
			PostID:   1,
			AuthorID: userID,
			Content:  "comment",
		})
		require.NoError(t, err)

		_, err = svc.UpdateComment(authenticatedCtx, discuss.UpdateCommentRequest{CommentID: 1, ActingUserID: userID, Content: "edit"})
		require.NoError(t, err)

		err = svc.DeleteComment(authenticatedCtx, 1, userID)
		require.NoError(t, err)

		_, err = svc.ListComments(authenticatedCtx, 1)
		require.NoError(t, err)
	})

	t.Run("not granted", func(t *testing.T) {
		_, err := svc.GetComment(authenticatedCtx, 1)

		accessDeniedErr := &authorization.AccessDeniedError{}
		require.ErrorAs(t, err, &accessDeniedErr)
	})
}
