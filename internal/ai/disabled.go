package ai

import "context"

// Disabled is the classifier used when no model credentials are configured.
// Every call reports ErrNotConfigured so callers can fall back.
type Disabled struct{}

func (Disabled) Classify(context.Context, Input) (*Result, error) {
	return nil, ErrNotConfigured
}
