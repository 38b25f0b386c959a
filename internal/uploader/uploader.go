// Package uploader pushes confirmed analysis results to external targets
// (Google Calendar events, Notion pages) over their REST APIs.
package uploader

import (
	"context"
	"encoding/json"

	"github.com/intraylabs/intray/internal/ai"
)

// Credentials carries the per-user bearer token and provider-specific target,
// a Google calendar ID or a Notion database ID.
type Credentials struct {
	Token    string
	TargetID string
}

// Request is one upload: the confirmed analysis plus the originally captured
// text, which providers echo into page bodies.
type Request struct {
	Result     *ai.Result
	SourceText string
}

// Target uploads one confirmed result and returns a provider payload that is
// echoed to stream subscribers and API callers.
type Target interface {
	Upload(ctx context.Context, creds Credentials, req Request) (json.RawMessage, error)
}
