package context

import (
	"context"
	"strconv"
)

const (
	// Anonymous is the guest subject.
	Anonymous = "system:anonymous"

	Authenticated   = "system:authenticated"
	Unauthenticated = "system:unauthenticated"
)

type contextKeySessionID struct{}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID{}, sessionID)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(contextKeySessionID{}).(string)
	if !ok || sessionID == "" {
		return "", false
	}

	return sessionID, true
}

type contextKeySubject struct{}

// GetSubject returns the authorization subject of ctx, or Anonymous.
func GetSubject(ctx context.Context) string {
	subject, ok := ctx.Value(contextKeySubject{}).(string)
	if !ok {
		return Anonymous
	}

	return subject
}

func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, contextKeySubject{}, subject)
}

// SubjectOf formats a user id as an authorization subject.
func SubjectOf(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// WithUserID stores a user id as the subject of ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return WithSubject(ctx, SubjectOf(userID))
}

// UserID parses the subject of ctx back into a user id. It reports false for
// anonymous and system subjects.
func UserID(ctx context.Context) (int64, bool) {
	userID, err := strconv.ParseInt(GetSubject(ctx), 10, 64)
	if err != nil {
		return 0, false
	}

	return userID, true
}

func WithServiceSubject(ctx context.Context, serviceName string) context.Context {
	return WithSubject(ctx, "system:service:"+serviceName)
}
