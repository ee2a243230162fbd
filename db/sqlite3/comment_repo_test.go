package sqlite3_test

import (
	"context"
	"testing"
	"time"

	"github.com/nasermirzaei89/forumgw/db/sqlite3"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewCommentRepository(db)

	author := createUser(t, db, "carol")
	commenter := createUser(t, db, "dave")
	post := createPost(t, db, author.ID, "Comment here")

	image := "uploads/cat.png"
	first := &discuss.Comment{PostID: post.ID, AuthorID: commenter.ID, Content: "first", Image: &image, CreatedAt: now, UpdatedAt: now}
	second := &discuss.Comment{PostID: post.ID, AuthorID: author.ID, Content: "second", CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)}

	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, second))

	comments, err := repo.List(ctx, &discuss.ListCommentsParams{PostID: post.ID})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	require.NotNil(t, comments[0].Image)
	assert.Equal(t, image, *comments[0].Image)
	assert.Nil(t, comments[1].Image)
	assert.True(t, now.Equal(comments[0].CreatedAt))

	other := createPost(t, db, author.ID, "Another thread")
	third := &discuss.Comment{PostID: other.ID, AuthorID: commenter.ID, Content: "third", CreatedAt: now.Add(time.Hour), UpdatedAt: now.Add(time.Hour)}
	require.NoError(t, repo.Insert(ctx, third))

	byCommenter, err := repo.List(ctx, &discuss.ListCommentsParams{AuthorID: commenter.ID, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, byCommenter, 2)
	assert.Equal(t, third.ID, byCommenter[0].ID)
	assert.Equal(t, first.ID, byCommenter[1].ID)

	count, err := repo.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	first.Content = "first, edited"
	first.UpdatedAt = now.Add(30 * time.Minute)
	require.NoError(t, repo.Update(ctx, first))

	stored, err := repo.Find(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first, edited", stored.Content)
	assert.True(t, now.Equal(stored.CreatedAt))

	notificationRepo := sqlite3.NewNotificationRepository(db)
	err = notificationRepo.InsertMany(ctx, []*notifications.Notification{{
		RecipientID: author.ID,
		Type:        notifications.TypeCommentOnPost,
		PostID:      post.ID,
		CommentID:   first.ID,
		Content:     "dave commented on your post",
		CreatedAt:   now,
	}})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, first.ID))

	var notFoundErr *discuss.CommentNotFoundError

	_, err = repo.Find(ctx, first.ID)
	require.ErrorAs(t, err, &notFoundErr)

	err = repo.Delete(ctx, first.ID)
	require.ErrorAs(t, err, &notFoundErr)

	unread, err := notificationRepo.CountUnread(ctx, author.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
