package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/intraylabs/intray/internal/api/respond"
	"github.com/intraylabs/intray/internal/auth"
	"github.com/intraylabs/intray/internal/model"
)

// ConnectionHandler is a thin HTTP transport over the ConnectionService.
type ConnectionHandler struct {
	svc ConnectionService
}

func NewConnectionHandler(svc ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{svc: svc}
}

// SaveConnection PUT /v0/connections/{provider}
// The access token is write-only; responses carry the connection without it.
func (h *ConnectionHandler) SaveConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	var req struct {
		AccessToken string `json:"accessToken"`
		TargetID    string `json:"targetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	conn, err := h.svc.SaveConnection(r.Context(), &model.Connection{
		UserID:      userID,
		Provider:    mux.Vars(r)["provider"],
		AccessToken: req.AccessToken,
		TargetID:    req.TargetID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, conn)
}

// GetConnection GET /v0/connections/{provider}
func (h *ConnectionHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	conn, err := h.svc.GetConnection(r.Context(), userID, mux.Vars(r)["provider"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, conn)
}

// DeleteConnection DELETE /v0/connections/{provider}
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserID(r)
	if err != nil {
		respond.WriteUnauthorized(w, err.Error())
		return
	}
	if err := h.svc.DeleteConnection(r.Context(), userID, mux.Vars(r)["provider"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
