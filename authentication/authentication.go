package authentication

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
	"golang.org/x/crypto/bcrypt"
)

const ServiceName = "github.com/nasermirzaei89/forumgw/authentication"

const defaultSessionDuration = 30 * 24 * time.Hour

// GroupMembership assigns authorization groups to subjects.
type GroupMembership interface {
	AddToGroup(ctx context.Context, sub string, group ...string) error
	RemoveFromGroups(ctx context.Context, sub string) error
}

type Service struct {
	userRepo       UserRepository
	sessionRepo    SessionRepository
	groups         GroupMembership
	clock          clockwork.Clock
	usernameFilter *UsernameFilter
	// filterLastID is the highest user id known when the filter was built.
	filterLastID int64
}

func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	groups GroupMembership,
	clock clockwork.Clock,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		groups:      groups,
		clock:       clock,
	}
}

// LoadUsernameFilter builds the username filter from every registered user.
// Users registered later, by this or any other process, are still found: a
// filter miss is confirmed against users with a higher id.
func (svc *Service) LoadUsernameFilter(ctx context.Context, minCapacity uint, falsePositiveRate float64) error {
	lastID, err := svc.userRepo.LastID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last user id for filter: %w", err)
	}

	usernames, err := svc.userRepo.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list usernames for filter: %w", err)
	}

	capacity := max(uint(len(usernames)), minCapacity)

	filter := NewUsernameFilter(capacity, falsePositiveRate)
	for _, username := range usernames {
		filter.Add(username)
	}

	svc.usernameFilter = filter
	svc.filterLastID = lastID

	return nil
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

func (svc *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	err := req.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid register request: %w", err)
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		RegisteredAt: svc.clock.Now(),
	}

	err = svc.userRepo.Insert(ctx, user)
	if err != nil {
		var alreadyExistsErr *UserAlreadyExistsError
		if errors.As(err, &alreadyExistsErr) {
			return nil, alreadyExistsErr
		}

		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	err = svc.groups.AddToGroup(ctx, authcontext.SubjectOf(user.ID), authcontext.Authenticated)
	if err != nil {
		deleteErr := svc.userRepo.Delete(ctx, user.ID)
		if deleteErr != nil {
			slog.ErrorContext(ctx, "failed to remove user without groups", "userId", user.ID, "error", deleteErr)
		}

		return nil, fmt.Errorf("failed to add user to authenticated group: %w", err)
	}

	if svc.usernameFilter != nil {
		svc.usernameFilter.Add(user.Username)
	}

	user.PasswordHash = ""

	return user, nil
}

func (svc *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := svc.userRepo.FindByUsername(ctx, username)
	if err != nil {
		var userByUsernameNotFoundErr *UserByUsernameNotFoundError
		if errors.As(err, &userByUsernameNotFoundErr) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	timeNow := svc.clock.Now()

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: timeNow,
		ExpiresAt: timeNow.Add(defaultSessionDuration),
	}

	err = svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// DeleteAccount removes the current user. Sessions, posts, comments, votes
// and notifications of the user go with it.
func (svc *Service) DeleteAccount(ctx context.Context) error {
	userID, ok := authcontext.UserID(ctx)
	if !ok {
		return ErrCurrentUserNotFound
	}

	err := svc.userRepo.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	err = svc.groups.RemoveFromGroups(ctx, authcontext.SubjectOf(userID))
	if err != nil {
		slog.WarnContext(ctx, "failed to remove deleted user from groups", "userId", userID, "error", err)
	}

	return nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.ExpiresAt.Before(svc.clock.Now()) {
		err = svc.sessionRepo.Delete(ctx, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "failed to delete expired session", "sessionId", sessionID, "error", err)
		}

		return nil, &SessionExpiredError{ID: sessionID}
	}

	return session, nil
}

// PurgeExpiredSessions removes every session that expired before now.
func (svc *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := svc.sessionRepo.DeleteExpired(ctx, svc.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return deleted, nil
}

func (svc *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.PasswordHash = "" // clear password hash before returning user

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	userID, ok := authcontext.UserID(ctx)
	if !ok {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}

// FindUsersByUsernames resolves exact usernames. Unknown names are left out of
// the result rather than reported.
func (svc *Service) FindUsersByUsernames(ctx context.Context, usernames []string) ([]*User, error) {
	candidates := make([]string, 0, len(usernames))
	misses := make([]string, 0)

	for _, username := range usernames {
		if svc.usernameFilter != nil && !svc.usernameFilter.MightContain(username) {
			misses = append(misses, username)

			continue
		}

		candidates = append(candidates, username)
	}

	users := make([]*User, 0, len(usernames))

	if len(candidates) > 0 {
		found, err := svc.userRepo.FindByUsernames(ctx, candidates)
		if err != nil {
			return nil, fmt.Errorf("failed to find users by usernames: %w", err)
		}

		users = append(users, found...)
	}

	if len(misses) > 0 {
		recent, err := svc.userRepo.FindByUsernamesAfterID(ctx, misses, svc.filterLastID)
		if err != nil {
			return nil, fmt.Errorf("failed to find recently registered users: %w", err)
		}

		for _, user := range recent {
			svc.usernameFilter.Add(user.Username)
		}

		users = append(users, recent...)
	}

	slices.SortFunc(users, func(a, b *User) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for _, user := range users {
		user.PasswordHash = ""
	}

	return users, nil
}

// ListUsers pages through users, newest first.
func (svc *Service) ListUsers(ctx context.Context, page int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}

	users, total, err := svc.userRepo.List(ctx, DefaultUsersPerPage, uint64((page-1)*DefaultUsersPerPage))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for _, user := range users {
		user.PasswordHash = ""
	}

	return &UserPage{
		Users:   users,
		Page:    page,
		PerPage: DefaultUsersPerPage,
		Total:   total,
	}, nil
}

func (svc *Service) SearchUsers(ctx context.Context, keyword string, limit uint64) ([]*User, error) {
	users, err := svc.userRepo.Search(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	for _, user := range users {
		user.PasswordHash = ""
	}

	return users, nil
}
