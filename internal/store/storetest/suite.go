// Package storetest holds a driver-agnostic compliance suite for store.Store
// implementations. Driver packages run it from their own tests.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()

	// Records: create assigns id, PENDING status, and timestamps
	r1, err := s.Records().Create(ctx, &model.Record{UserID: userID, InputType: model.InputText, Text: "dentist tomorrow 3pm"})
	if err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if r1.RecordID == "" || r1.Status != model.StatusPending || r1.CreationTime.IsZero() {
		t.Fatalf("CreateRecord defaults: %+v", r1)
	}
	if got, err := s.Records().Get(ctx, userID, r1.RecordID); err != nil || got.Text != "dentist tomorrow 3pm" {
		t.Fatalf("GetRecord: got=%+v err=%v", got, err)
	}
	if _, err := s.Records().Get(ctx, userID, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetRecord missing: want ErrNotFound, got %v", err)
	}
	if _, err := s.Records().Get(ctx, "someone-else", r1.RecordID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetRecord cross-user: want ErrNotFound, got %v", err)
	}

	// Partial update: result+status only, text untouched
	analyzed := model.StatusAnalyzed
	result := json.RawMessage(`{"type":"CALENDAR","summary":"Dentist"}`)
	upd, err := s.Records().Update(ctx, userID, r1.RecordID, model.RecordUpdate{Status: &analyzed, Result: result})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if upd.Status != model.StatusAnalyzed || upd.Text != "dentist tomorrow 3pm" {
		t.Fatalf("UpdateRecord partial: %+v", upd)
	}
	if upd.UpdateTime.Before(r1.UpdateTime) {
		t.Fatalf("UpdateRecord should bump update_time: was=%v now=%v", r1.UpdateTime, upd.UpdateTime)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(upd.Result, &parsed); err != nil || parsed["summary"] != "Dentist" {
		t.Fatalf("UpdateRecord result roundtrip: %s err=%v", upd.Result, err)
	}
	if _, err := s.Records().Update(ctx, userID, "missing", model.RecordUpdate{Status: &analyzed}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("UpdateRecord missing: want ErrNotFound, got %v", err)
	}

	// Listing: newest first, status filter, limit
	time.Sleep(5 * time.Millisecond) // ensure monotonic creation time ordering
	r2, err := s.Records().Create(ctx, &model.Record{UserID: userID, InputType: model.InputText, Text: "buy milk"})
	if err != nil {
		t.Fatalf("CreateRecord r2: %v", err)
	}
	all, err := s.Records().List(ctx, userID, model.RecordFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListRecords: n=%d err=%v", len(all), err)
	}
	if all[0].RecordID != r2.RecordID {
		t.Fatalf("ListRecords order: want newest first, got %s", all[0].RecordID)
	}
	if pend, err := s.Records().List(ctx, userID, model.RecordFilter{Status: model.StatusPending}); err != nil || len(pend) != 1 || pend[0].RecordID != r2.RecordID {
		t.Fatalf("ListRecords status filter: n=%d err=%v", len(pend), err)
	}
	if lim, err := s.Records().List(ctx, userID, model.RecordFilter{Limit: 1}); err != nil || len(lim) != 1 {
		t.Fatalf("ListRecords limit: n=%d err=%v", len(lim), err)
	}

	// Soft delete hides the record from default listings
	canceled := model.StatusCanceled
	delAt := time.Now().UTC()
	if _, err := s.Records().Update(ctx, userID, r2.RecordID, model.RecordUpdate{Status: &canceled, DeletionTime: &delAt}); err != nil {
		t.Fatalf("CancelRecord: %v", err)
	}
	if live, err := s.Records().List(ctx, userID, model.RecordFilter{}); err != nil || len(live) != 1 || live[0].RecordID != r1.RecordID {
		t.Fatalf("ListRecords after cancel: n=%d err=%v", len(live), err)
	}
	if withDel, err := s.Records().List(ctx, userID, model.RecordFilter{IncludeDeleted: true}); err != nil || len(withDel) != 2 {
		t.Fatalf("ListRecords include deleted: n=%d err=%v", len(withDel), err)
	}

	// Retention: purge removes only records deleted before the cutoff
	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := s.Records().Update(ctx, userID, r2.RecordID, model.RecordUpdate{DeletionTime: &old}); err != nil {
		t.Fatalf("backdate deletion: %v", err)
	}
	// purge is global, so a shared database may sweep rows from other runs
	n, err := s.Records().PurgeDeleted(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil || n < 1 {
		t.Fatalf("PurgeDeleted: n=%d err=%v", n, err)
	}
	if _, err := s.Records().Get(ctx, userID, r2.RecordID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetRecord after purge: want ErrNotFound, got %v", err)
	}

	// Categories
	c1, err := s.Categories().Create(ctx, &model.Category{UserID: userID, Kind: "CALENDAR", Name: "Work"})
	if err != nil || c1.CategoryID == "" {
		t.Fatalf("CreateCategory: got=%+v err=%v", c1, err)
	}
	if _, err := s.Categories().Create(ctx, &model.Category{UserID: userID, Kind: "CALENDAR", Name: "Work"}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("CreateCategory duplicate: want ErrConflict, got %v", err)
	}
	if _, err := s.Categories().Create(ctx, &model.Category{UserID: userID, Kind: "MEMO", Name: "Ideas"}); err != nil {
		t.Fatalf("CreateCategory memo: %v", err)
	}
	if lst, err := s.Categories().List(ctx, userID, ""); err != nil || len(lst) != 2 {
		t.Fatalf("ListCategories: n=%d err=%v", len(lst), err)
	}
	if cal, err := s.Categories().List(ctx, userID, "CALENDAR"); err != nil || len(cal) != 1 || cal[0].Name != "Work" {
		t.Fatalf("ListCategories kind filter: n=%d err=%v", len(cal), err)
	}
	if err := s.Categories().Delete(ctx, userID, c1.CategoryID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := s.Categories().Delete(ctx, userID, c1.CategoryID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteCategory twice: want ErrNotFound, got %v", err)
	}

	// Connections
	conn, err := s.Connections().Upsert(ctx, &model.Connection{UserID: userID, Provider: model.ProviderNotion, AccessToken: "secret-1", TargetID: "db-1"})
	if err != nil || conn.CreationTime.IsZero() {
		t.Fatalf("UpsertConnection: got=%+v err=%v", conn, err)
	}
	if got, err := s.Connections().Get(ctx, userID, model.ProviderNotion); err != nil || got.AccessToken != "secret-1" || got.TargetID != "db-1" {
		t.Fatalf("GetConnection: got=%+v err=%v", got, err)
	}
	time.Sleep(5 * time.Millisecond)
	conn2, err := s.Connections().Upsert(ctx, &model.Connection{UserID: userID, Provider: model.ProviderNotion, AccessToken: "secret-2", TargetID: "db-2"})
	if err != nil {
		t.Fatalf("UpsertConnection update: %v", err)
	}
	if conn2.AccessToken != "secret-2" || !conn2.CreationTime.Equal(conn.CreationTime) {
		t.Fatalf("UpsertConnection should keep creation_time: first=%v second=%+v", conn.CreationTime, conn2)
	}
	if _, err := s.Connections().Get(ctx, userID, model.ProviderGoogle); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetConnection missing: want ErrNotFound, got %v", err)
	}
	if err := s.Connections().Delete(ctx, userID, model.ProviderNotion); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	if err := s.Connections().Delete(ctx, userID, model.ProviderNotion); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteConnection twice: want ErrNotFound, got %v", err)
	}
}
