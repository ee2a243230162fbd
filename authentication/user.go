package authentication

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	RegisteredAt time.Time
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID int64) (user *User, err error)
	FindByUsername(ctx context.Context, username string) (user *User, err error)
	FindByUsernames(ctx context.Context, usernames []string) (users []*User, err error)
	FindByUsernamesAfterID(ctx context.Context, usernames []string, afterID int64) (users []*User, err error)
	LastID(ctx context.Context) (lastID int64, err error)
	ListUsernames(ctx context.Context) (usernames []string, err error)
	List(ctx context.Context, limit, offset uint64) (users []*User, total int, err error)
	Search(ctx context.Context, keyword string, limit uint64) (users []*User, err error)
	Delete(ctx context.Context, userID int64) (err error)
}

const DefaultUsersPerPage = 10

type UserPage struct {
	Users   []*User
	Page    int
	PerPage int
	Total   int
}

// usernamePattern matches exactly what a comment mention can reference.
var usernamePattern = regexp.MustCompile(`^\w+$`)

type RegisterRequest struct {
	Username string
	Password string
}

func (req RegisterRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username,
			validation.Required,
			validation.Length(3, 32),
			validation.Match(usernamePattern).Error("must contain only letters, digits and underscores"),
		),
		validation.Field(&req.Password, validation.Required, validation.Length(8, 72)),
	)
}

type UserNotFoundError struct {
	ID int64
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %d not found", err.ID)
}

type UserByUsernameNotFoundError struct {
	Username string
}

func (err UserByUsernameNotFoundError) Error() string {
	return fmt.Sprintf("user with username %q not found", err.Username)
}

type UserAlreadyExistsError struct {
	Username string
}

func (err UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with username %q already exists", err.Username)
}

var (
	ErrCurrentUserNotFound = errors.New("current user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
