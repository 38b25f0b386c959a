package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind tags a classification outcome.
type Kind string

const (
	KindCalendar Kind = "CALENDAR"
	KindMemo     Kind = "MEMO"
)

// Default category labels used when the model omits one.
const (
	DefaultCalendarCategory = "Schedule"
	DefaultMemoCategory     = "Memo"
)

// Stage records which rung of the recovery ladder produced a result.
type Stage string

const (
	StageParsed   Stage = "parsed"
	StageRepaired Stage = "repaired"
	StagePartial  Stage = "partial"
)

// Part is one piece of model input: plain text, or raw bytes with a MIME
// type (image or PDF). Parts are forwarded to the model without inspection.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// Input is one classification request. Category slices constrain the labels
// the model may pick; empty slices leave the model free to invent one.
type Input struct {
	Text               string
	Parts              []Part
	CalendarCategories []string
	MemoCategories     []string
}

// Reminder is a calendar notification offset.
type Reminder struct {
	Method  string `json:"method,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
}

// Result is the normalized outcome of one classification. Date fields stay
// strings: they are validated as ISO timestamps here but parsed into concrete
// times only at upload.
type Result struct {
	Kind        Kind     `json:"type"`
	Summary     string   `json:"summary"`
	Content     string   `json:"content,omitempty"`
	Category    string   `json:"category,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	URL         string   `json:"url,omitempty"`
	Attachments []string `json:"attachments,omitempty"`

	// Calendar fields.
	StartTime   string     `json:"start_time,omitempty"`
	EndTime     string     `json:"end_time,omitempty"`
	AllDay      bool       `json:"all_day,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	Location    string     `json:"location,omitempty"`
	Attendees   []string   `json:"attendees,omitempty"`
	Reminders   []Reminder `json:"reminders,omitempty"`
	Recurrence  string     `json:"recurrence,omitempty"`
	MeetingURL  string     `json:"meeting_url,omitempty"`
	CreateMeet  bool       `json:"create_meet,omitempty"`
	EventStatus string     `json:"status,omitempty"`
	Visibility  string     `json:"visibility,omitempty"`

	// Memo fields.
	Body       string   `json:"body,omitempty"`
	DueDate    string   `json:"due_date,omitempty"`
	Assignee   string   `json:"assignee,omitempty"`
	MemoStatus string   `json:"memo_status,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`

	// Stage is set by the pipeline, never by the model.
	Stage Stage `json:"recovery_stage,omitempty"`
}

var validMemoStatus = map[string]bool{
	"not-started": true,
	"in-progress": true,
	"done":        true,
}

// Validate checks the kind-specific schema rules. Partial results carry no
// confidence; the confidence requirement applies to fully parsed memos only.
func (r *Result) Validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return &ValidationError{Field: "summary", Msg: "required"}
	}
	switch r.Priority {
	case "", "low", "medium", "high":
	default:
		return &ValidationError{Field: "priority", Msg: fmt.Sprintf("unknown value %q", r.Priority)}
	}

	switch r.Kind {
	case KindCalendar:
		if r.StartTime != "" {
			if _, err := ParseDateTime(r.StartTime, time.UTC); err != nil {
				return &ValidationError{Field: "start_time", Msg: err.Error()}
			}
		}
		if r.EndTime != "" {
			if _, err := ParseDateTime(r.EndTime, time.UTC); err != nil {
				return &ValidationError{Field: "end_time", Msg: err.Error()}
			}
		}
	case KindMemo:
		if r.DueDate != "" {
			if _, err := ParseDateTime(r.DueDate, time.UTC); err != nil {
				return &ValidationError{Field: "due_date", Msg: err.Error()}
			}
		}
		if r.MemoStatus != "" && !validMemoStatus[r.MemoStatus] {
			return &ValidationError{Field: "memo_status", Msg: fmt.Sprintf("unknown value %q", r.MemoStatus)}
		}
		if r.Stage != StagePartial {
			if r.Confidence == nil {
				return &ValidationError{Field: "confidence", Msg: "required for MEMO"}
			}
			if *r.Confidence < 0 || *r.Confidence > 1 {
				return &ValidationError{Field: "confidence", Msg: "must be within [0,1]"}
			}
		}
	default:
		return &ValidationError{Field: "type", Msg: fmt.Sprintf("unknown kind %q", r.Kind)}
	}
	return nil
}

// Caller invokes a generative model with a prompt and content parts,
// returning the raw text response. Implementations return *TransportError
// for network and provider failures.
type Caller interface {
	Invoke(ctx context.Context, prompt string, parts []Part) (string, error)
}

// Classifier turns user input into a normalized Result.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Result, error)
}
