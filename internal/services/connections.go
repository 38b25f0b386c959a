package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

// ConnectionService stores provider credentials for upload targets.
type ConnectionService struct {
	store store.Store
}

func NewConnectionService(s store.Store) *ConnectionService {
	return &ConnectionService{store: s}
}

// SaveConnection validates and upserts one provider credential. Notion
// connections must name the target database; google connections may leave
// TargetID empty to use the primary calendar.
func (s *ConnectionService) SaveConnection(ctx context.Context, c *model.Connection) (*model.Connection, error) {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case model.ProviderGoogle, model.ProviderNotion:
	default:
		return nil, fmt.Errorf("%w: provider must be %s or %s", model.ErrValidation, model.ProviderGoogle, model.ProviderNotion)
	}
	if c.AccessToken == "" {
		return nil, fmt.Errorf("%w: accessToken is required", model.ErrValidation)
	}
	if c.Provider == model.ProviderNotion && c.TargetID == "" {
		return nil, fmt.Errorf("%w: targetId (database id) is required for notion", model.ErrValidation)
	}
	return s.store.Connections().Upsert(ctx, c)
}

func (s *ConnectionService) GetConnection(ctx context.Context, userID, provider string) (*model.Connection, error) {
	return s.store.Connections().Get(ctx, userID, strings.ToLower(strings.TrimSpace(provider)))
}

func (s *ConnectionService) DeleteConnection(ctx context.Context, userID, provider string) error {
	return s.store.Connections().Delete(ctx, userID, strings.ToLower(strings.TrimSpace(provider)))
}
