package web

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest

	err := decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode register request", err)

		return
	}

	user, err := h.svc.Auth.Register(r.Context(), authentication.RegisterRequest{
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		h.writeError(w, r, "failed to register user", err)

		return
	}

	writeJSON(w, r, http.StatusCreated, authorView{ID: user.ID, Username: user.Username})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest

	err := decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode login request", err)

		return
	}

	session, err := h.svc.Auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		h.writeError(w, r, "failed to login user", err)

		return
	}

	user, err := h.svc.Auth.GetUser(r.Context(), session.UserID)
	if err != nil {
		h.writeError(w, r, "failed to get logged in user", err)

		return
	}

	err = h.setSessionValue(w, r, sessionIDKey, session.ID)
	if err != nil {
		h.writeError(w, r, "failed to set session value", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"user": newUserView(user)})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	value, err := h.getSessionValue(r, sessionIDKey)
	if err != nil {
		h.writeError(w, r, "failed to get session value", err)

		return
	}

	sessionID, _ := value.(string)

	err = h.svc.Auth.Logout(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, r, "failed to logout user", err)

		return
	}

	err = h.deleteSessionValue(w, r, sessionIDKey)
	if err != nil {
		h.writeError(w, r, "failed to delete session value", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Auth.GetCurrentUser(r.Context())
	if err != nil {
		h.writeError(w, r, "failed to get current user", err)

		return
	}

	unread, err := h.svc.Notifications.CountUnread(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, "failed to count unread notifications", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"user":        newUserView(user),
		"unreadCount": unread,
	})
}

func (h *Handler) HandleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if h.csrfEnabled {
		token = csrf.Token(r)
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"token": token})
}

// HandleDeleteAccount removes the current user with everything they wrote and
// ends the browser session.
func (h *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Auth.DeleteAccount(r.Context())
	if err != nil {
		h.writeError(w, r, "failed to delete account", err)

		return
	}

	err = h.deleteSessionValue(w, r, sessionIDKey)
	if err != nil {
		h.writeError(w, r, "failed to delete session value", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.writeError(w, r, "failed to parse page", err)

		return
	}

	result, err := h.svc.Auth.ListUsers(r.Context(), int(page))
	if err != nil {
		h.writeError(w, r, "failed to list users", err)

		return
	}

	views := make([]*userView, 0, len(result.Users))
	for _, user := range result.Users {
		views = append(views, newUserView(user))
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"users":   views,
		"page":    result.Page,
		"perPage": result.PerPage,
		"total":   result.Total,
	})
}

type profilePostView struct {
	*postView

	Comments []*commentView `json:"comments"`
}

type postRefView struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type profileCommentView struct {
	*commentView

	Post *postRefView `json:"post"`
}

// HandleShowUser returns a profile: the user's posts with their comments and
// the user's comments with the post each belongs to, newest first.
func (h *Handler) HandleShowUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse user id", err)

		return
	}

	page, err := queryInt(r, "page")
	if err != nil {
		h.writeError(w, r, "failed to parse page", err)

		return
	}

	user, err := h.svc.Auth.GetUser(ctx, userID)
	if err != nil {
		h.writeError(w, r, "failed to get user", err)

		return
	}

	result, err := h.svc.Contents.ListPosts(ctx, contents.ListPostsRequest{
		Filter:   contents.FilterNewest,
		AuthorID: user.ID,
		Page:     int(page),
	})
	if err != nil {
		h.writeError(w, r, "failed to list user posts", err)

		return
	}

	postViews, err := h.postViews(ctx, result.Posts)
	if err != nil {
		h.writeError(w, r, "failed to build post views", err)

		return
	}

	posts := make([]*profilePostView, 0, len(postViews))

	for _, view := range postViews {
		comments, err := h.svc.Discuss.ListComments(ctx, view.ID)
		if err != nil {
			h.writeError(w, r, "failed to list post comments", err)

			return
		}

		commentViews, err := h.commentViews(ctx, comments)
		if err != nil {
			h.writeError(w, r, "failed to build comment views", err)

			return
		}

		posts = append(posts, &profilePostView{postView: view, Comments: commentViews})
	}

	userComments, err := h.svc.Discuss.ListUserComments(ctx, user.ID)
	if err != nil {
		h.writeError(w, r, "failed to list user comments", err)

		return
	}

	author := &authorView{ID: user.ID, Username: user.Username}
	refs := make(map[int64]*postRefView)
	comments := make([]*profileCommentView, 0, len(userComments))

	for _, comment := range userComments {
		ref, ok := refs[comment.PostID]
		if !ok {
			post, err := h.svc.Contents.GetPost(ctx, comment.PostID)
			if err != nil {
				h.writeError(w, r, "failed to get commented post", err)

				return
			}

			ref = &postRefView{ID: post.ID, Title: post.Title}
			refs[comment.PostID] = ref
		}

		comments = append(comments, &profileCommentView{commentView: commentViewOf(comment, author), Post: ref})
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"user":       newUserView(user),
		"posts":      posts,
		"page":       result.Page,
		"perPage":    result.PerPage,
		"totalPosts": result.Total,
		"comments":   comments,
	})
}
