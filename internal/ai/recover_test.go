package ai

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRecover_WellFormedPassThrough(t *testing.T) {
	inner := `{"type": "MEMO", "summary": "buy milk", "confidence": 0.9}`
	cases := []struct {
		name string
		raw  string
	}{
		{"bare object", inner},
		{"fenced json block", "```json\n" + inner + "\n```"},
		{"fence without label", "```\n" + inner + "\n```"},
		{"prose before object", "Here is the classification:\n" + inner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Recover(tc.raw)
			if err != nil {
				t.Fatalf("recover: %v", err)
			}
			if rec.Stage != StageParsed {
				t.Fatalf("stage = %s, want %s", rec.Stage, StageParsed)
			}
			if string(rec.JSON) != inner {
				t.Fatalf("payload modified: %s", rec.JSON)
			}
		})
	}
}

func TestRecover_TruncationSweep(t *testing.T) {
	full := `{"type": "CALENDAR", "summary": "Dentist visit", "attendees": ["alice", "bob"], "location": "Seoul"}`
	for i := 1; i < len(full); i++ {
		prefix := full[:i]
		rec, err := Recover(prefix)
		if err != nil {
			t.Fatalf("offset %d: recover failed: %v", i, err)
		}
		if !json.Valid(rec.JSON) {
			t.Fatalf("offset %d: repaired output is not valid JSON: %s", i, rec.JSON)
		}
	}
}

func TestRecover_EscapesNewlineInNestedString(t *testing.T) {
	raw := "{\"items\": [{\"note\": \"line1\nline2\"}], \"summary\": \"notes\"}"
	rec, err := Recover(raw)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if rec.Stage != StageRepaired {
		t.Fatalf("stage = %s, want %s", rec.Stage, StageRepaired)
	}
	var got struct {
		Items []struct {
			Note string `json:"note"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.JSON, &got); err != nil {
		t.Fatalf("unmarshal repaired: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Note != "line1\nline2" {
		t.Fatalf("newline did not round-trip: %+v", got)
	}
}

func TestRecover_DanglingKeyStripped(t *testing.T) {
	rec, err := Recover(`{"type": "MEMO", "summary": "ok", "conf`)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.JSON, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got["summary"] != "ok" {
		t.Fatalf("unexpected repaired object: %v", got)
	}
}

func TestRecover_PartialExtraction(t *testing.T) {
	// Missing commas defeat the repair pass; field scraping still applies.
	raw := `Sure! {"type": "calendar" "summary": "Dentist"`
	rec, err := Recover(raw)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if rec.Stage != StagePartial {
		t.Fatalf("stage = %s, want %s", rec.Stage, StagePartial)
	}
	var res Result
	if err := json.Unmarshal(rec.JSON, &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Kind != KindCalendar || res.Summary != "Dentist" {
		t.Fatalf("unexpected partial result: %+v", res)
	}
	if res.Content != "Dentist" {
		t.Fatalf("content not backfilled from summary: %q", res.Content)
	}
	if res.Category != DefaultCalendarCategory {
		t.Fatalf("category = %q, want %q", res.Category, DefaultCalendarCategory)
	}
}

func TestRecover_PartialRequiresTypeAndSummary(t *testing.T) {
	raw := `{"type": "calendar" "content": "no summary here"`
	if _, err := Recover(raw); err == nil {
		t.Fatal("expected recovery failure without summary")
	}
}

func TestRecover_NoJSONFound(t *testing.T) {
	_, err := Recover("I could not produce a structured answer.")
	var re *RecoveryError
	if !errors.As(err, &re) {
		t.Fatalf("expected RecoveryError, got %v", err)
	}
	if re.Reason != ReasonNoJSON {
		t.Fatalf("reason = %s, want %s", re.Reason, ReasonNoJSON)
	}
}

func TestRecover_UnparseableKeepsTruncatedRaw(t *testing.T) {
	raw := "{" + strings.Repeat("x", 3000)
	_, err := Recover(raw)
	var re *RecoveryError
	if !errors.As(err, &re) {
		t.Fatalf("expected RecoveryError, got %v", err)
	}
	if re.Reason != ReasonUnparseable {
		t.Fatalf("reason = %s, want %s", re.Reason, ReasonUnparseable)
	}
	if len(re.Raw) != 2000 {
		t.Fatalf("raw kept %d chars, want 2000", len(re.Raw))
	}
}
