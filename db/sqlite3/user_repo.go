package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forumgw/authentication"
)

const tableUsers = "users"

type UserRepository struct {
	db *sql.DB
}

var _ authentication.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userFieldID           = "id"
	userFieldUsername     = "username"
	userFieldPasswordHash = "password_hash"
	userFieldRegisteredAt = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldUsername,
		userFieldPasswordHash,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*authentication.User, error) {
	var user authentication.User

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &user, nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *authentication.User) error {
	q := sq.Insert(tableUsers).
		Columns(userFieldUsername, userFieldPasswordHash, userFieldRegisteredAt).
		Values(user.Username, user.PasswordHash, user.RegisteredAt.UTC())

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &authentication.UserAlreadyExistsError{Username: user.Username}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *UserRepository) Find(ctx context.Context, userID int64) (*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldID: userID})

	q = q.RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByUsername(ctx context.Context, username string) (*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldUsername: username})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &authentication.UserByUsernameNotFoundError{Username: username}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByUsernames(ctx context.Context, usernames []string) ([]*authentication.User, error) {
	if len(usernames) == 0 {
		return []*authentication.User{}, nil
	}

	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldUsername: usernames}).
		OrderBy(userFieldID)

	return repo.list(ctx, q)
}

// FindByUsernamesAfterID is FindByUsernames restricted to users with an id
// above afterID.
func (repo *UserRepository) FindByUsernamesAfterID(
	ctx context.Context,
	usernames []string,
	afterID int64,
) ([]*authentication.User, error) {
	if len(usernames) == 0 {
		return []*authentication.User{}, nil
	}

	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Gt{userFieldID: afterID}).
		Where(sq.Eq{userFieldUsername: usernames}).
		OrderBy(userFieldID)

	return repo.list(ctx, q)
}

func (repo *UserRepository) LastID(ctx context.Context) (int64, error) {
	var lastID int64

	err := sq.Select("COALESCE(MAX(" + userFieldID + "), 0)").
		From(tableUsers).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&lastID)
	if err != nil {
		return 0, fmt.Errorf("failed to query last user id: %w", err)
	}

	return lastID, nil
}

func (repo *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	q := sq.Select(userFieldUsername).
		From(tableUsers).
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query usernames: %w", err)
	}

	defer closeRows(ctx, rows, "username")

	usernames := make([]string, 0)

	for rows.Next() {
		var username string

		err := rows.Scan(&username)
		if err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}

		usernames = append(usernames, username)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate username rows: %w", err)
	}

	return usernames, nil
}

func (repo *UserRepository) List(ctx context.Context, limit, offset uint64) ([]*authentication.User, int, error) {
	var total int

	err := sq.Select("COUNT(*)").
		From(tableUsers).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	q := sq.Select(userColumns()...).
		From(tableUsers).
		OrderBy(userFieldRegisteredAt+" DESC", userFieldID+" DESC").
		Limit(limit).
		Offset(offset)

	users, err := repo.list(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Delete removes the user. Foreign keys cascade to everything the user owns;
// counters of posts the user voted on are recomputed.
func (repo *UserRepository) Delete(ctx context.Context, userID int64) error {
	return inTx(ctx, repo.db, func(tx *sql.Tx) error {
		postIDs, err := votedPostIDs(ctx, tx, userID)
		if err != nil {
			return err
		}

		q := sq.Delete(tableUsers).Where(sq.Eq{userFieldID: userID})

		err = execAffectingOne(ctx, q.RunWith(tx), &authentication.UserNotFoundError{ID: userID})
		if err != nil {
			return err
		}

		return recountVotes(ctx, tx, postIDs)
	})
}

func (repo *UserRepository) Search(ctx context.Context, keyword string, limit uint64) ([]*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(containsKeyword(userFieldUsername, keyword)).
		OrderBy(userFieldUsername).
		Limit(limit)

	return repo.list(ctx, q)
}

func (repo *UserRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*authentication.User, error) {
	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	defer closeRows(ctx, rows, "user")

	users := make([]*authentication.User, 0)

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	return users, nil
}
