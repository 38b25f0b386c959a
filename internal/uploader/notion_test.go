package uploader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/intraylabs/intray/internal/ai"
)

// notionFake serves the database retrieve, database update and page create
// endpoints and records what it saw.
type notionFake struct {
	hasCategory bool

	retrieves int
	patched   bool
	patchBody []byte
	pageBody  []byte
	version   string
}

func (f *notionFake) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.version = r.Header.Get("Notion-Version")
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/databases/"):
			f.retrieves++
			props := map[string]interface{}{
				"Name": map[string]string{"type": "title"},
				"Tags": map[string]string{"type": "multi_select"},
			}
			if f.hasCategory || f.patched {
				props["Category"] = map[string]string{"type": "select"}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"properties": props})
		case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/v1/databases/"):
			f.patched = true
			f.patchBody, _ = io.ReadAll(r.Body)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			f.pageBody, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":  "page-1",
				"url": "https://notion.so/page-1",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestNotion_UploadCreatesPage(t *testing.T) {
	fake := &notionFake{hasCategory: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	n := NewNotion(NotionConfig{BaseURL: srv.URL})
	res := &ai.Result{
		Kind:     ai.KindMemo,
		Summary:  "Buy milk",
		Body:     "Two liters, lactose free",
		Category: "Tasks",
	}
	creds := Credentials{Token: "secret", TargetID: "db-1"}
	out, err := n.Upload(context.Background(), creds, Request{Result: res, SourceText: "buy milk pls"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if fake.version != notionVersion {
		t.Fatalf("unexpected Notion-Version %q", fake.version)
	}
	if fake.patched {
		t.Fatalf("existing Category property must not be recreated")
	}

	var page notionPageRequest
	if err := json.Unmarshal(fake.pageBody, &page); err != nil {
		t.Fatalf("decode page body: %v", err)
	}
	if page.Parent.DatabaseID != "db-1" {
		t.Fatalf("unexpected parent %+v", page.Parent)
	}
	raw := string(fake.pageBody)
	if !strings.Contains(raw, `"Name"`) || !strings.Contains(raw, "Buy milk") {
		t.Fatalf("title property missing from page body: %s", raw)
	}
	if !strings.Contains(raw, `"Category"`) || !strings.Contains(raw, "Tasks") {
		t.Fatalf("category property missing from page body: %s", raw)
	}
	if len(page.Children) < 2 {
		t.Fatalf("expected analysis and source blocks, got %d", len(page.Children))
	}
	if !strings.Contains(raw, "Two liters, lactose free") || !strings.Contains(raw, "buy milk pls") {
		t.Fatalf("page body missing content blocks: %s", raw)
	}

	var outcome map[string]string
	if err := json.Unmarshal(out, &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome["type"] != "notion" || outcome["pageId"] != "page-1" || outcome["url"] != "https://notion.so/page-1" {
		t.Fatalf("unexpected outcome %v", outcome)
	}
}

func TestNotion_UploadAddsCategoryProperty(t *testing.T) {
	fake := &notionFake{hasCategory: false}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	n := NewNotion(NotionConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindMemo, Summary: "Idea"}
	creds := Credentials{Token: "secret", TargetID: "db-2"}
	if _, err := n.Upload(context.Background(), creds, Request{Result: res}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if !fake.patched {
		t.Fatalf("missing Category property should be created")
	}
	patch := string(fake.patchBody)
	for _, opt := range []string{"Ideas", "Tasks", "Memo", "Schedule", "Other"} {
		if !strings.Contains(patch, opt) {
			t.Fatalf("patch body missing option %q: %s", opt, patch)
		}
	}
	// default category when the analysis has none
	if !strings.Contains(string(fake.pageBody), ai.DefaultMemoCategory) {
		t.Fatalf("expected default category in page body: %s", fake.pageBody)
	}
}

func TestNotion_UploadCachesSchema(t *testing.T) {
	fake := &notionFake{hasCategory: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	n := NewNotion(NotionConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindMemo, Summary: "First"}
	creds := Credentials{Token: "secret", TargetID: "db-3"}
	for i := 0; i < 3; i++ {
		if _, err := n.Upload(context.Background(), creds, Request{Result: res}); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
	}
	if fake.retrieves != 1 {
		t.Fatalf("schema should be detected once, saw %d retrieves", fake.retrieves)
	}
}

func TestNotion_UploadTitleFallsBackToText(t *testing.T) {
	fake := &notionFake{hasCategory: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	n := NewNotion(NotionConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindMemo, Summary: ""}
	long := strings.Repeat("x", 150)
	creds := Credentials{Token: "secret", TargetID: "db-4"}
	if _, err := n.Upload(context.Background(), creds, Request{Result: res, SourceText: long}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	var page struct {
		Properties map[string]struct {
			Title []struct {
				Text struct {
					Content string `json:"content"`
				} `json:"text"`
			} `json:"title"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(fake.pageBody, &page); err != nil {
		t.Fatalf("decode page body: %v", err)
	}
	title := page.Properties["Name"].Title
	if len(title) != 1 {
		t.Fatalf("expected one title fragment, got %d", len(title))
	}
	if got := title[0].Text.Content; got != strings.Repeat("x", notionTitleLimit) {
		t.Fatalf("title should be capped at %d runes, got %d", notionTitleLimit, len(got))
	}
}

func TestNotion_UploadRequiresCredentials(t *testing.T) {
	n := NewNotion(NotionConfig{})
	res := &ai.Result{Kind: ai.KindMemo, Summary: "x"}

	if _, err := n.Upload(context.Background(), Credentials{TargetID: "db"}, Request{Result: res}); err == nil {
		t.Fatalf("expected error without token")
	}
	if _, err := n.Upload(context.Background(), Credentials{Token: "tok"}, Request{Result: res}); err == nil {
		t.Fatalf("expected error without database id")
	}
}

func TestNotion_UploadRequiresTitleProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"properties": map[string]interface{}{
				"Tags": map[string]string{"type": "multi_select"},
			},
		})
	}))
	defer srv.Close()

	n := NewNotion(NotionConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindMemo, Summary: "x"}
	_, err := n.Upload(context.Background(), Credentials{Token: "tok", TargetID: "db"}, Request{Result: res})
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("expected title property error, got %v", err)
	}
}
