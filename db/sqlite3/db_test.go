package sqlite3_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/db/sqlite3"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "forumgw.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	db, err := sqlite3.NewDB(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	return db
}

func createUser(t *testing.T, db *sql.DB, username string) *authentication.User {
	t.Helper()

	user := &authentication.User{Username: username, PasswordHash: "hash", RegisteredAt: now}

	err := sqlite3.NewUserRepository(db).Insert(context.Background(), user)
	require.NoError(t, err)

	return user
}

func createPost(t *testing.T, db *sql.DB, authorID int64, title string, modules ...*contents.Module) *contents.Post {
	t.Helper()

	post := &contents.Post{
		AuthorID:  authorID,
		Title:     title,
		Content:   "content of " + title,
		Modules:   modules,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := sqlite3.NewPostRepository(db).Insert(context.Background(), post)
	require.NoError(t, err)

	return post
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	err := sqlite3.MigrateDown(ctx, db)
	require.NoError(t, err)

	var count int

	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'posts'").Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)
}
