package web

import (
	"net/http"

	"github.com/nasermirzaei89/forumgw/discuss"
)

type createCommentRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	_, err = h.svc.Contents.GetPost(r.Context(), postID)
	if err != nil {
		h.writeError(w, r, "failed to get post", err)

		return
	}

	comments, err := h.svc.Discuss.ListComments(r.Context(), postID)
	if err != nil {
		h.writeError(w, r, "failed to list comments", err)

		return
	}

	views, err := h.commentViews(r.Context(), comments)
	if err != nil {
		h.writeError(w, r, "failed to build comment views", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"comments": views})
}

func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse post id", err)

		return
	}

	var body createCommentRequest

	err = decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode create comment request", err)

		return
	}

	comment, err := h.svc.Discuss.CreateComment(r.Context(), discuss.CreateCommentRequest{
		PostID:   postID,
		AuthorID: currentUserID(r),
		Content:  body.Content,
		Image:    body.Image,
	})
	if err != nil {
		h.writeError(w, r, "failed to create comment", err)

		return
	}

	h.writeComment(w, r, http.StatusCreated, comment)
}

func (h *Handler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse comment id", err)

		return
	}

	var body updateCommentRequest

	err = decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode update comment request", err)

		return
	}

	comment, err := h.svc.Discuss.UpdateComment(r.Context(), discuss.UpdateCommentRequest{
		CommentID:    commentID,
		ActingUserID: currentUserID(r),
		Content:      body.Content,
	})
	if err != nil {
		h.writeError(w, r, "failed to update comment", err)

		return
	}

	h.writeComment(w, r, http.StatusOK, comment)
}

func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "failed to parse comment id", err)

		return
	}

	err = h.svc.Discuss.DeleteComment(r.Context(), commentID, currentUserID(r))
	if err != nil {
		h.writeError(w, r, "failed to delete comment", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "comment deleted",
	})
}

func (h *Handler) writeComment(w http.ResponseWriter, r *http.Request, status int, comment *discuss.Comment) {
	author, err := h.newAuthors().get(r.Context(), comment.AuthorID)
	if err != nil {
		h.writeError(w, r, "failed to get comment author", err)

		return
	}

	writeJSON(w, r, status, map[string]any{
		"success": true,
		"comment": commentViewOf(comment, author),
	})
}
