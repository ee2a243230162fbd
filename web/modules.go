package web

import (
	"net/http"

	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/search"
)

type createModuleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) HandleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.svc.Contents.ListModules(r.Context())
	if err != nil {
		h.writeError(w, r, "failed to list modules", err)

		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"modules": newModuleViews(modules)})
}

func (h *Handler) HandleCreateModule(w http.ResponseWriter, r *http.Request) {
	var body createModuleRequest

	err := decodeJSON(w, r, &body)
	if err != nil {
		h.writeError(w, r, "failed to decode create module request", err)

		return
	}

	module, err := h.svc.Contents.CreateModule(r.Context(), contents.CreateModuleRequest{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		h.writeError(w, r, "failed to create module", err)

		return
	}

	writeJSON(w, r, http.StatusCreated, newModuleView(module))
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Search.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, r, "failed to search", err)

		return
	}

	var results any

	switch result.Type {
	case search.ResultTypeUser:
		users := make([]*authorView, 0, len(result.Users))
		for _, user := range result.Users {
			users = append(users, &authorView{ID: user.ID, Username: user.Username})
		}

		results = users
	case search.ResultTypeModule:
		results = newModuleViews(result.Modules)
	default:
		posts, err := h.postViews(r.Context(), result.Posts)
		if err != nil {
			h.writeError(w, r, "failed to build post views", err)

			return
		}

		results = posts
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"type":    result.Type,
		"results": results,
	})
}
