package sqlite3_test

import (
	"context"
	"testing"
	"time"

	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/db/sqlite3"
	"github.com/nasermirzaei89/forumgw/votes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewUserRepository(db)

	alice := createUser(t, db, "alice")
	createUser(t, db, "bob")
	createUser(t, db, "alicia")

	t.Run("find", func(t *testing.T) {
		user, err := repo.Find(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.True(t, now.Equal(user.RegisteredAt))

		_, err = repo.Find(ctx, 999)

		var notFoundErr *authentication.UserNotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := repo.Insert(ctx, &authentication.User{Username: "alice", PasswordHash: "x", RegisteredAt: time.Now()})

		var existsErr *authentication.UserAlreadyExistsError
		require.ErrorAs(t, err, &existsErr)
	})

	t.Run("find by usernames", func(t *testing.T) {
		users, err := repo.FindByUsernames(ctx, []string{"bob", "alice", "nobody"})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "bob", users[1].Username)

		users, err = repo.FindByUsernames(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("search", func(t *testing.T) {
		users, err := repo.Search(ctx, "ali", 10)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "alicia", users[1].Username)

		users, err = repo.Search(ctx, "%", 10)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("list usernames", func(t *testing.T) {
		usernames, err := repo.ListUsernames(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"alice", "bob", "alicia"}, usernames)
	})

	t.Run("find by usernames after id", func(t *testing.T) {
		lastID, err := repo.LastID(ctx)
		require.NoError(t, err)

		erin := createUser(t, db, "erin")
		assert.Greater(t, erin.ID, lastID)

		users, err := repo.FindByUsernamesAfterID(ctx, []string{"alice", "erin"}, lastID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "erin", users[0].Username)
	})

	t.Run("list", func(t *testing.T) {
		users, total, err := repo.List(ctx, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, users, 2)
		assert.Equal(t, "erin", users[0].Username)
		assert.Equal(t, "alicia", users[1].Username)

		users, _, err = repo.List(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "bob", users[0].Username)
		assert.Equal(t, "alice", users[1].Username)
	})
}

func TestUserRepository_LastIDOnEmptyTable(t *testing.T) {
	lastID, err := sqlite3.NewUserRepository(newTestDB(t)).LastID(context.Background())
	require.NoError(t, err)
	assert.Zero(t, lastID)
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewUserRepository(db)
	postRepo := sqlite3.NewPostRepository(db)
	voteSvc := votes.NewService(sqlite3.NewVoteRepository(db))

	author := createUser(t, db, "carol")
	leaving := createUser(t, db, "dave")
	staying := createUser(t, db, "erin")

	kept := createPost(t, db, author.ID, "Stays around")
	owned := createPost(t, db, leaving.ID, "Goes away")

	_, err := voteSvc.ApplyVote(ctx, kept.ID, leaving.ID, votes.VoteLike)
	require.NoError(t, err)

	_, err = voteSvc.ApplyVote(ctx, kept.ID, staying.ID, votes.VoteDislike)
	require.NoError(t, err)

	sessions := sqlite3.NewSessionRepository(db)
	require.NoError(t, sessions.Insert(ctx, &authentication.Session{
		ID: "dave-session", UserID: leaving.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, repo.Delete(ctx, leaving.ID))

	var userNotFoundErr *authentication.UserNotFoundError

	_, err = repo.Find(ctx, leaving.ID)
	require.ErrorAs(t, err, &userNotFoundErr)

	err = repo.Delete(ctx, leaving.ID)
	require.ErrorAs(t, err, &userNotFoundErr)

	var sessionNotFoundErr *authentication.SessionNotFoundError

	_, err = sessions.Find(ctx, "dave-session")
	require.ErrorAs(t, err, &sessionNotFoundErr)

	var postNotFoundErr *contents.PostNotFoundError

	_, err = postRepo.Find(ctx, owned.ID)
	require.ErrorAs(t, err, &postNotFoundErr)

	stored, err := postRepo.Find(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stored.LikeCount)
	assert.Equal(t, uint32(1), stored.DislikeCount)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite3.NewSessionRepository(db)
	user := createUser(t, db, "alice")

	live := &authentication.Session{ID: "live", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &authentication.Session{ID: "stale", UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}

	require.NoError(t, repo.Insert(ctx, live))
	require.NoError(t, repo.Insert(ctx, stale))

	session, err := repo.Find(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.True(t, live.ExpiresAt.Equal(session.ExpiresAt))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var notFoundErr *authentication.SessionNotFoundError

	_, err = repo.Find(ctx, "stale")
	require.ErrorAs(t, err, &notFoundErr)

	require.NoError(t, repo.Delete(ctx, "live"))

	err = repo.Delete(ctx, "live")
	require.ErrorAs(t, err, &notFoundErr)
}
