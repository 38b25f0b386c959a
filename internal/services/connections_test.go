package services

import (
	"context"
	"errors"
	"testing"

	"github.com/intraylabs/intray/internal/model"
)

func TestSaveConnection_Normalizes(t *testing.T) {
	fs := newFakeStore()
	svc := NewConnectionService(fs)

	conn, err := svc.SaveConnection(context.Background(), &model.Connection{
		UserID:      "u1",
		Provider:    " Notion ",
		AccessToken: "secret",
		TargetID:    "db-1",
	})
	if err != nil {
		t.Fatalf("SaveConnection: %v", err)
	}
	if conn.Provider != model.ProviderNotion {
		t.Fatalf("provider = %q, want %q", conn.Provider, model.ProviderNotion)
	}
	if fs.conns[model.ProviderNotion] == nil {
		t.Fatalf("connection not stored")
	}
}

func TestSaveConnection_Validation(t *testing.T) {
	svc := NewConnectionService(newFakeStore())

	cases := []*model.Connection{
		{UserID: "u1", Provider: "slack", AccessToken: "t"},
		{UserID: "u1", Provider: "google", AccessToken: ""},
		{UserID: "u1", Provider: "notion", AccessToken: "t"}, // no database id
	}
	for i, c := range cases {
		if _, err := svc.SaveConnection(context.Background(), c); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("case %d: err = %v, want validation error", i, err)
		}
	}
}

func TestSaveConnection_GoogleWithoutTarget(t *testing.T) {
	svc := NewConnectionService(newFakeStore())

	// No TargetID means the primary calendar; that is fine for google.
	if _, err := svc.SaveConnection(context.Background(), &model.Connection{
		UserID:      "u1",
		Provider:    "google",
		AccessToken: "tok",
	}); err != nil {
		t.Fatalf("SaveConnection: %v", err)
	}
}

func TestGetAndDeleteConnection(t *testing.T) {
	fs := newFakeStore()
	fs.conns[model.ProviderGoogle] = &model.Connection{Provider: model.ProviderGoogle, AccessToken: "tok"}
	svc := NewConnectionService(fs)

	conn, err := svc.GetConnection(context.Background(), "u1", "GOOGLE")
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if conn.AccessToken != "tok" {
		t.Fatalf("unexpected connection: %+v", conn)
	}

	if err := svc.DeleteConnection(context.Background(), "u1", "Google"); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	if fs.deletedConn != model.ProviderGoogle {
		t.Fatalf("delete not normalized, got %q", fs.deletedConn)
	}
}
