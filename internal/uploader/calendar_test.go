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

func TestCalendar_UploadInsertsEvent(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":       "evt-1",
			"htmlLink": "https://calendar.google.com/event?eid=evt-1",
		})
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{
		Kind:       ai.KindCalendar,
		Summary:    "Dentist",
		Content:    "Annual checkup",
		Category:   "Work",
		StartTime:  "2026-03-01T10:00:00",
		EndTime:    "2026-03-01T11:30:00",
		Location:   "Main St 5",
		Recurrence: "weekly",
	}
	out, err := cal.Upload(context.Background(), Credentials{Token: "tok-123"}, Request{Result: res})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotPath != "/calendar/v3/calendars/primary/events" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}

	var ev calendarEvent
	if err := json.Unmarshal(gotBody, &ev); err != nil {
		t.Fatalf("decode event body: %v", err)
	}
	if ev.Summary != "Dentist" || ev.Description != "Annual checkup" {
		t.Fatalf("unexpected summary/description: %+v", ev)
	}
	if ev.Start.DateTime != "2026-03-01T10:00:00" || ev.Start.TimeZone != "UTC" {
		t.Fatalf("unexpected start: %+v", ev.Start)
	}
	if ev.End.DateTime != "2026-03-01T11:30:00" {
		t.Fatalf("unexpected end: %+v", ev.End)
	}
	if ev.ColorID != "11" {
		t.Fatalf("expected work color 11, got %q", ev.ColorID)
	}
	if len(ev.Recurrence) != 1 || ev.Recurrence[0] != "RRULE:FREQ=WEEKLY" {
		t.Fatalf("unexpected recurrence %v", ev.Recurrence)
	}
	if ev.Location != "Main St 5" {
		t.Fatalf("unexpected location %q", ev.Location)
	}

	var outcome map[string]string
	if err := json.Unmarshal(out, &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome["type"] != "calendar" || outcome["eventId"] != "evt-1" {
		t.Fatalf("unexpected outcome %v", outcome)
	}
	if outcome["link"] != "https://calendar.google.com/event?eid=evt-1" {
		t.Fatalf("unexpected link %q", outcome["link"])
	}
}

func TestCalendar_UploadFallbackTimes(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-2", "htmlLink": "https://x"})
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindCalendar, Summary: "Vague plan"}
	if _, err := cal.Upload(context.Background(), Credentials{Token: "t"}, Request{Result: res}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	var ev calendarEvent
	if err := json.Unmarshal(gotBody, &ev); err != nil {
		t.Fatalf("decode event body: %v", err)
	}
	if !strings.HasSuffix(ev.Start.DateTime, "T14:00:00") {
		t.Fatalf("expected 14:00 fallback start, got %q", ev.Start.DateTime)
	}
	if !strings.HasSuffix(ev.End.DateTime, "T15:00:00") {
		t.Fatalf("expected one-hour fallback end, got %q", ev.End.DateTime)
	}
}

func TestCalendar_UploadAllDay(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-3", "htmlLink": "https://x"})
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindCalendar, Summary: "Conference", StartTime: "2026-05-20", AllDay: true}
	if _, err := cal.Upload(context.Background(), Credentials{Token: "t"}, Request{Result: res}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	var ev calendarEvent
	if err := json.Unmarshal(gotBody, &ev); err != nil {
		t.Fatalf("decode event body: %v", err)
	}
	if ev.Start.Date != "2026-05-20" || ev.Start.DateTime != "" {
		t.Fatalf("expected date-only start, got %+v", ev.Start)
	}
	// Google's end date is exclusive
	if ev.End.Date != "2026-05-21" {
		t.Fatalf("expected exclusive end date 2026-05-21, got %q", ev.End.Date)
	}
}

func TestCalendar_UploadTargetsNamedCalendar(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-4", "htmlLink": "https://x"})
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindCalendar, Summary: "Standup", StartTime: "2026-03-02T09:00:00"}
	creds := Credentials{Token: "t", TargetID: "team@group.calendar.google.com"}
	if _, err := cal.Upload(context.Background(), creds, Request{Result: res}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/calendar/v3/calendars/team@group.calendar.google.com/events" {
		t.Fatalf("unexpected path %s", gotPath)
	}
}

func TestCalendar_UploadRequiresToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindCalendar, Summary: "Dentist"}
	if _, err := cal.Upload(context.Background(), Credentials{}, Request{Result: res}); err == nil {
		t.Fatalf("expected error without token")
	}
	if called {
		t.Fatalf("server should not be called without token")
	}
}

func TestCalendar_UploadSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient scope"}}`))
	}))
	defer srv.Close()

	cal := NewCalendar(CalendarConfig{BaseURL: srv.URL})
	res := &ai.Result{Kind: ai.KindCalendar, Summary: "Dentist", StartTime: "2026-03-01T10:00:00"}
	_, err := cal.Upload(context.Background(), Credentials{Token: "t"}, Request{Result: res})
	if err == nil {
		t.Fatalf("expected error on 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("error should carry status: %v", err)
	}
}

func TestRecurrenceRule(t *testing.T) {
	cases := map[string][]string{
		"daily":   {"RRULE:FREQ=DAILY"},
		"Monthly": {"RRULE:FREQ=MONTHLY"},
		"never":   nil,
		"":        nil,
	}
	for in, want := range cases {
		got := RecurrenceRule(in)
		if len(got) != len(want) || (len(got) == 1 && got[0] != want[0]) {
			t.Fatalf("RecurrenceRule(%q) = %v, want %v", in, got, want)
		}
	}
}
