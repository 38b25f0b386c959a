package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/intraylabs/intray/internal/api/respond"
	"github.com/intraylabs/intray/internal/auth"
)

// CategoryHandler is a thin HTTP transport over the CategoryService.
type CategoryHandler struct {
	svc CategoryService
}

func NewCategoryHandler(svc CategoryService) *CategoryHandler { return &CategoryHandler{svc: svc} }

// CreateCategory POST /v0/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	cat, err := h.svc.CreateCategory(r.Context(), userID, req.Kind, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, cat)
}

// ListCategories GET /v0/categories?kind=
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	cats, err := h.svc.ListCategories(r.Context(), userID, r.URL.Query().Get("kind"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": cats, "count": len(cats)})
}

// DeleteCategory DELETE /v0/categories/{categoryId}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), userID, mux.Vars(r)["categoryId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
