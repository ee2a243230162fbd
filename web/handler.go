package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/forumgw/authentication"
	authcontext "github.com/nasermirzaei89/forumgw/authentication/context"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/metrics"
	"github.com/nasermirzaei89/forumgw/notifications"
	"github.com/nasermirzaei89/forumgw/search"
	"github.com/nasermirzaei89/forumgw/throttle"
	"github.com/nasermirzaei89/forumgw/votes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Services groups the domain services the HTTP API is built on.
type Services struct {
	Auth          *authentication.Service
	Contents      contents.Service
	Discuss       discuss.Service
	Votes         votes.Service
	Notifications notifications.Service
	Search        *search.Service
}

type CSRFOptions struct {
	Enabled        bool
	AuthKey        []byte
	TrustedOrigins []string
	Secure         bool
}

type RateLimitOptions struct {
	Limiter   *throttle.Limiter
	PerMinute int64
}

type Handler struct {
	mux         *http.ServeMux
	handler     http.Handler
	svc         Services
	cookieStore sessions.Store
	sessionName string
	csrfEnabled bool
	rateLimit   RateLimitOptions
	markdown    goldmark.Markdown
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	svc Services,
	cookieStore sessions.Store,
	sessionName string,
	csrfOpts CSRFOptions,
	rateLimit RateLimitOptions,
) (*Handler, error) {
	if svc.Auth == nil || svc.Contents == nil || svc.Discuss == nil || svc.Votes == nil ||
		svc.Notifications == nil || svc.Search == nil {
		return nil, fmt.Errorf("all services are required")
	}

	h := &Handler{
		svc:         svc,
		cookieStore: cookieStore,
		sessionName: sessionName,
		csrfEnabled: csrfOpts.Enabled,
		rateLimit:   rateLimit,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		),
	}

	{
		h.mux = &http.ServeMux{}

		h.registerRoutes()
	}

	{
		h.handler = h.observeMiddleware(h.rateLimitMiddleware(h.mux))
		h.handler = h.authMiddleware(h.handler)

		if csrfOpts.Enabled {
			if len(csrfOpts.AuthKey) != 32 {
				return nil, fmt.Errorf("csrf auth key must be 32 bytes, got %d", len(csrfOpts.AuthKey))
			}

			csrfMiddleware := csrf.Protect(
				csrfOpts.AuthKey,
				csrf.TrustedOrigins(csrfOpts.TrustedOrigins),
				csrf.Secure(csrfOpts.Secure),
				csrf.Path("/"),
				csrf.ErrorHandler(http.HandlerFunc(handleCSRFFailure)),
			)

			h.handler = plaintextMiddleware(csrfMiddleware(h.handler))
		}

		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.Handle("POST /register", h.GuestOnly(http.HandlerFunc(h.HandleRegister)))
	h.mux.Handle("POST /login", h.GuestOnly(http.HandlerFunc(h.HandleLogin)))
	h.mux.Handle("POST /logout", h.AuthenticatedOnly(http.HandlerFunc(h.HandleLogout)))
	h.mux.Handle("GET /me", h.AuthenticatedOnly(http.HandlerFunc(h.HandleMe)))
	h.mux.Handle("DELETE /me", h.AuthenticatedOnly(http.HandlerFunc(h.HandleDeleteAccount)))
	h.mux.HandleFunc("GET /csrf-token", h.HandleCSRFToken)

	h.mux.HandleFunc("GET /users", h.HandleListUsers)
	h.mux.HandleFunc("GET /users/{id}", h.HandleShowUser)

	h.mux.HandleFunc("GET /posts", h.HandleListPosts)
	h.mux.Handle("POST /posts", h.AuthenticatedOnly(http.HandlerFunc(h.HandleCreatePost)))
	h.mux.HandleFunc("GET /posts/{id}", h.HandleViewPost)
	h.mux.Handle("PUT /posts/{id}", h.AuthenticatedOnly(http.HandlerFunc(h.HandleUpdatePost)))
	h.mux.Handle("DELETE /posts/{id}", h.AuthenticatedOnly(http.HandlerFunc(h.HandleDeletePost)))
	h.mux.Handle("POST /posts/{id}/like-dislike", h.AuthenticatedOnly(http.HandlerFunc(h.HandleVote)))

	h.mux.HandleFunc("GET /posts/{id}/comments", h.HandleListComments)
	h.mux.Handle("POST /posts/{id}/comments", h.AuthenticatedOnly(http.HandlerFunc(h.HandleCreateComment)))
	h.mux.Handle("PUT /comments/{id}", h.AuthenticatedOnly(http.HandlerFunc(h.HandleUpdateComment)))
	h.mux.Handle("DELETE /comments/{id}", h.AuthenticatedOnly(http.HandlerFunc(h.HandleDeleteComment)))

	h.mux.Handle("GET /notifications", h.AuthenticatedOnly(http.HandlerFunc(h.HandleListNotifications)))
	h.mux.Handle("POST /notifications/read-all", h.AuthenticatedOnly(http.HandlerFunc(h.HandleMarkAllAsRead)))
	h.mux.Handle("POST /notifications/{id}/read", h.AuthenticatedOnly(http.HandlerFunc(h.HandleMarkAsRead)))

	h.mux.HandleFunc("GET /modules", h.HandleListModules)
	h.mux.Handle("POST /modules", h.AuthenticatedOnly(http.HandlerFunc(h.HandleCreateModule)))
	h.mux.HandleFunc("GET /modules/{id}/posts", h.HandleListModulePosts)

	h.mux.HandleFunc("GET /search", h.HandleSearch)

	h.mux.Handle("GET /metrics", metrics.Handler())
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error occurred"})
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

// plaintextMiddleware tells the CSRF middleware to skip its TLS-only referer
// checks for requests that did not arrive over TLS.
func plaintextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}

		next.ServeHTTP(w, r)
	})
}

func handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "csrf validation failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))

	writeJSON(w, r, http.StatusForbidden, errorResponse{Error: "invalid csrf token", Reason: "csrf"})
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// observeMiddleware logs and counts every request once the mux has resolved
// its route pattern.
func (h *Handler) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		slog.InfoContext(
			r.Context(),
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration,
		)
	})
}

// rateLimitMiddleware limits state-changing requests per user, or per remote
// address for guests. Limiter errors let the request through.
func (h *Handler) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.rateLimit.Limiter == nil || h.rateLimit.PerMinute <= 0 || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)

			return
		}

		key := "http:" + clientKey(r)

		allowed, err := h.rateLimit.Limiter.Hit(r.Context(), key, h.rateLimit.PerMinute, time.Minute)
		if err != nil {
			slog.WarnContext(r.Context(), "failed to check rate limit", "key", key, "error", err)
		} else if !allowed {
			metrics.SpamRejections.WithLabelValues("request").Inc()
			writeJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func clientKey(r *http.Request) string {
	if userID, ok := authcontext.UserID(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10)
	}

	return "ip:" + remoteHost(r.RemoteAddr)
}
