package web

import (
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/nasermirzaei89/forumgw/authentication"
	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
)

// authMiddleware resolves the session cookie into a subject on the request
// context. Stale sessions are dropped and the request continues as a guest.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionValueNotFoundError *SessionValueNotFoundError

		value, err := h.getSessionValue(r, sessionIDKey)
		if err != nil && !errors.As(err, &sessionValueNotFoundError) {
			slog.WarnContext(r.Context(), "failed to get session value", "key", sessionIDKey, "error", err)

			next.ServeHTTP(w, r)

			return
		}

		sessionID, _ := value.(string)
		if sessionID == "" {
			next.ServeHTTP(w, r)

			return
		}

		session, err := h.svc.Auth.GetSession(r.Context(), sessionID)
		if err != nil {
			var (
				sessionNotFoundErr *authentication.SessionNotFoundError
				sessionExpiredErr  *authentication.SessionExpiredError
			)

			if !errors.As(err, &sessionNotFoundErr) && !errors.As(err, &sessionExpiredErr) {
				slog.ErrorContext(r.Context(), "failed to get session", "sessionId", sessionID, "error", err)
				writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error occurred"})

				return
			}

			h.dropSession(w, r)
			next.ServeHTTP(w, r)

			return
		}

		ctx := authcontext.WithSessionID(r.Context(), session.ID)

		user, err := h.svc.Auth.GetUser(ctx, session.UserID)
		if err != nil {
			var userNotFoundErr *authentication.UserNotFoundError
			if !errors.As(err, &userNotFoundErr) {
				slog.ErrorContext(ctx, "failed to get session user", "userId", session.UserID, "error", err)
				writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error occurred"})

				return
			}

			err = h.svc.Auth.Logout(ctx, session.ID)
			if err != nil {
				slog.WarnContext(ctx, "failed to logout orphan session", "sessionId", session.ID, "error", err)
			}

			h.dropSession(w, r)
			next.ServeHTTP(w, r)

			return
		}

		next.ServeHTTP(w, r.WithContext(authcontext.WithUserID(ctx, user.ID)))
	})
}

func (h *Handler) dropSession(w http.ResponseWriter, r *http.Request) {
	err := h.deleteSessionValue(w, r, sessionIDKey)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to delete session value", "key", sessionIDKey, "error", err)
	}
}

func isAuthenticated(r *http.Request) bool {
	_, ok := authcontext.UserID(r.Context())

	return ok
}

// currentUserID returns the id of the logged-in user. Only call it behind
// AuthenticatedOnly.
func currentUserID(r *http.Request) int64 {
	userID, _ := authcontext.UserID(r.Context())

	return userID
}

func (h *Handler) AuthenticatedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r) {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "authentication required"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAuthenticated(r) {
			writeJSON(w, r, http.StatusForbidden, errorResponse{Error: "already authenticated"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
