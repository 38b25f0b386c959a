package api

import (
	"errors"
	"net/http"

	respond "github.com/intraylabs/intray/internal/api/respond"
	"github.com/intraylabs/intray/internal/model"
)

// writeServiceError maps the service error taxonomy onto HTTP status codes.
// Unknown errors become 500 without leaking internals to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidState):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrConflict):
		respond.WriteError(w, http.StatusConflict, err.Error())
	default:
		respond.WriteInternalError(w, "internal error")
	}
}

// isClientFault reports whether the error belongs to the request rather than
// a downstream system. Used by the upload handler to tell a bad request from
// a failed provider call.
func isClientFault(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrInvalidState) ||
		errors.Is(err, model.ErrConflict)
}
