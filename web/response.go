package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/notifications"
	"github.com/nasermirzaei89/forumgw/votes"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body == nil {
		return
	}

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

type InvalidBodyError struct {
	Err error
}

func (err InvalidBodyError) Error() string {
	return fmt.Sprintf("invalid request body: %v", err.Err)
}

func (err InvalidBodyError) Unwrap() error {
	return err.Err
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return &InvalidBodyError{Err: err}
	}

	return nil
}

type InvalidPathValueError struct {
	Name  string
	Value string
}

func (err InvalidPathValueError) Error() string {
	return fmt.Sprintf("invalid %s %q", err.Name, err.Value)
}

type InvalidQueryValueError struct {
	Name  string
	Value string
}

func (err InvalidQueryValueError) Error() string {
	return fmt.Sprintf("invalid query parameter %s=%q", err.Name, err.Value)
}

func pathID(r *http.Request, name string) (int64, error) {
	value := r.PathValue(name)

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, &InvalidPathValueError{Name: name, Value: value}
	}

	return id, nil
}

// errorStatus maps a service error onto its HTTP status and public body.
func errorStatus(err error) (int, errorResponse) {
	var (
		validationErrs      validation.Errors
		invalidBodyErr      *InvalidBodyError
		invalidPathErr      *InvalidPathValueError
		invalidQueryErr     *InvalidQueryValueError
		invalidVoteTypeErr  *votes.InvalidVoteTypeError
		accessDeniedErr     *authorization.AccessDeniedError
		postNotFoundErr     *contents.PostNotFoundError
		moduleNotFoundErr   *contents.ModuleNotFoundError
		commentNotFoundErr  *discuss.CommentNotFoundError
		notifNotFoundErr    *notifications.NotificationNotFoundError
		userNotFoundErr     *authentication.UserNotFoundError
		postForbiddenErr    *contents.PostForbiddenError
		commentForbiddenErr *discuss.CommentForbiddenError
		notifForbiddenErr   *notifications.NotificationForbiddenError
		spamErr             *discuss.SpamDetectedError
		userExistsErr       *authentication.UserAlreadyExistsError
		moduleExistsErr     *contents.ModuleAlreadyExistsError
	)

	switch {
	case errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: validationFields(validationErrs)}
	case errors.As(err, &invalidVoteTypeErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: map[string]string{"type": "must be either like or dislike"},
		}
	case errors.As(err, &invalidBodyErr):
		return http.StatusBadRequest, errorResponse{Error: "invalid request body"}
	case errors.As(err, &invalidQueryErr):
		return http.StatusBadRequest, errorResponse{Error: invalidQueryErr.Error()}
	case errors.As(err, &invalidPathErr):
		return http.StatusNotFound, errorResponse{Error: invalidPathErr.Error()}
	case errors.As(err, &postNotFoundErr):
		return http.StatusNotFound, errorResponse{Error: "post not found"}
	case errors.As(err, &moduleNotFoundErr):
		return http.StatusNotFound, errorResponse{Error: "module not found"}
	case errors.As(err, &commentNotFoundErr):
		return http.StatusNotFound, errorResponse{Error: "comment not found"}
	case errors.As(err, &notifNotFoundErr):
		return http.StatusNotFound, errorResponse{Error: "notification not found"}
	case errors.As(err, &userNotFoundErr):
		return http.StatusNotFound, errorResponse{Error: "user not found"}
	case errors.As(err, &postForbiddenErr):
		return http.StatusForbidden, errorResponse{
			Error:  "only the author can " + postForbiddenErr.Action + " this post",
			Reason: discuss.ReasonNotAuthor,
		}
	case errors.As(err, &commentForbiddenErr):
		return http.StatusForbidden, errorResponse{Error: commentForbiddenErr.Error(), Reason: commentForbiddenErr.Reason}
	case errors.As(err, &notifForbiddenErr):
		return http.StatusForbidden, errorResponse{Error: "notification belongs to another user", Reason: "not_recipient"}
	case errors.As(err, &accessDeniedErr):
		return http.StatusForbidden, errorResponse{Error: "access denied"}
	case errors.As(err, &spamErr):
		return http.StatusTooManyRequests, errorResponse{Error: "duplicate content posted too often, try again later"}
	case errors.As(err, &userExistsErr):
		return http.StatusConflict, errorResponse{Error: "username already exists"}
	case errors.As(err, &moduleExistsErr):
		return http.StatusConflict, errorResponse{Error: "module already exists"}
	case errors.Is(err, authentication.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid username or password"}
	case errors.Is(err, authentication.ErrCurrentUserNotFound):
		return http.StatusUnauthorized, errorResponse{Error: "authentication required"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error occurred"}
	}
}

func validationFields(errs validation.Errors) map[string]string {
	fields := make(map[string]string, len(errs))

	for field, err := range errs {
		fields[strings.ToLower(field)] = err.Error()
	}

	return fields
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, body := errorStatus(err)

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.DebugContext(r.Context(), msg, "status", status, "error", err)
	}

	writeJSON(w, r, status, body)
}
