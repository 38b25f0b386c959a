// Package auth resolves the acting user for API requests. Identity rides in
// the X-User-ID header; there is no credential check, callers in front of
// the service (gateway, tunnel) are trusted to have done that.
package auth

import (
	"net/http"
	"regexp"
)

// HeaderUserID carries the acting user's identifier.
const HeaderUserID = "X-User-ID"

// userIDPattern bounds identifiers to something safe for logs and storage
// keys: printable, no whitespace, capped length.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

// UserID extracts and validates the acting user from the request. Handlers
// call this first and answer 401 on error.
func UserID(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return "", ErrMissingUserID
	}
	if !userIDPattern.MatchString(id) {
		return "", ErrInvalidUserID
	}
	return id, nil
}
