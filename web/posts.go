package web

import (
	"net/http"
	"strconv"

	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/votes"
)

type createPostRequest struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Image     string  `json:"image"`
	ModuleIDs []int64 `json:"modules"`
}

type updatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type voteRequest struct {
	Type votes.VoteType `json:"type"`
}

type postPageView struct {
	Posts   []*postView `json:"posts"`
	Page    int         `json:"page"`
	PerPage int         `json:"perPage"`
	Total   int         `json:"total"`
}

func queryInt(r *http.Request, key string) (int64, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &InvalidQueryValueError{Name: key, Value: value}
	}

	return n, nil
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request, moduleID int64) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.writeError(w, r, "failed to parse page", err)

		return
	}

	if moduleID == 0 {
		moduleID, err = queryInt(r, "module")
		if err != nil {
			h.writeError(w, r, "failed to parse module", err)

			return
		}
	}

	result, err := h.svc.Contents.ListPosts(r.Context(), contents.ListPostsRequest{
		Filter:   contents.PostFilter(r.URL.Query().Get("filter")),
		ModuleID: moduleID,
		Page:     int(page),
	})
	if err != nil {
		h.writeError(w, r, "failed to list posts", err)

		return
	}

	views, err := h.postViews(r.Context(), result.Posts)
	if err != nil {
		h.writeError(w, r, "failed to build post views", err)

		return
	}

	writeJSON(w, r, http.StatusOK, postPageView{
		Posts:   views,
		Page:    result.Page,
		PerPage: result.PerPage,
		Total:   result.Total,
	})
}

func (h *Handler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, 0)
}

func (h *Handler) HandleListModulePosts(w http.ResponseWriter, r *http.Request) {
	moduleID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse module id", err)

		return
	}

	_, err = h.svc.Contents.GetModule(r.Context(), moduleID)
	if err != nil {
		h.writeError(w, r, "failed to get module", err)

		return
	}

	h.listPosts(w, r, moduleID)
}

func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var body createPostRequest

	err := decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode create post request", err)

		return
	}

	post, err := h.svc.Contents.CreatePost(r.Context(), contents.CreatePostRequest{
		AuthorID:  currentUserID(r),
		Title:     body.Title,
		Content:   body.Content,
		Image:     body.Image,
		ModuleIDs: body.ModuleIDs,
	})
	if err != nil {
		h.writeError(w, r, "failed to create post", err)

		return
	}

	view, err := h.postView(r.Context(), h.newAuthors(), post)
	if err != nil {
		h.writeError(w, r, "failed to build post view", err)

		return
	}

	writeJSON(w, r, http.StatusCreated, view)
}

func (h *Handler) HandleViewPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	post, err := h.svc.Contents.ViewPost(r.Context(), postID)
	if err != nil {
		h.writeError(w, r, "failed to view post", err)

		return
	}

	a := h.newAuthors()

	view, err := h.postView(r.Context(), a, post)
	if err != nil {
		h.writeError(w, r, "failed to build post view", err)

		return
	}

	view.ContentHTML, err = h.renderMarkdown(post.Content)
	if err != nil {
		h.writeError(w, r, "failed to render post content", err)

		return
	}

	comments, err := h.svc.Discuss.ListComments(r.Context(), post.ID)
	if err != nil {
		h.writeError(w, r, "failed to list comments", err)

		return
	}

	commentViews, err := h.commentViews(r.Context(), comments)
	if err != nil {
		h.writeError(w, r, "failed to build comment views", err)

		return
	}

	commentCount := len(commentViews)
	view.CommentCount = &commentCount

	resp := map[string]any{
		"post":     view,
		"comments": commentViews,
	}

	if isAuthenticated(r) {
		tally, err := h.svc.Votes.GetTally(r.Context(), post.ID)
		if err != nil {
			h.writeError(w, r, "failed to get vote tally", err)

			return
		}

		if voteType, ok := tally.VoteOf(currentUserID(r)); ok {
			resp["myVote"] = voteType
		}
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	var body updatePostRequest

	err = decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode update post request", err)

		return
	}

	post, err := h.svc.Contents.UpdatePost(r.Context(), contents.UpdatePostRequest{
		PostID:       postID,
		ActingUserID: currentUserID(r),
		Title:        body.Title,
		Content:      body.Content,
	})
	if err != nil {
		h.writeError(w, r, "failed to update post", err)

		return
	}

	view, err := h.postView(r.Context(), h.newAuthors(), post)
	if err != nil {
		h.writeError(w, r, "failed to build post view", err)

		return
	}

	writeJSON(w, r, http.StatusOK, view)
}

func (h *Handler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	err = h.svc.Contents.DeletePost(r.Context(), postID, currentUserID(r))
	if err != nil {
		h.writeError(w, r, "failed to delete post", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	var body voteRequest

	err = decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode vote request", err)

		return
	}

	tally, err := h.svc.Votes.ApplyVote(r.Context(), postID, currentUserID(r), body.Type)
	if err != nil {
		h.writeError(w, r, "failed to apply vote", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"likes":    tally.LikeCount,
		"dislikes": tally.DislikeCount,
	})
}
