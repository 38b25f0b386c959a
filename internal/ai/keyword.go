package ai

import (
	"context"
	"regexp"
	"strings"
)

// calendarKeywords are the temporal and appointment words that flip the
// keyword classifier to CALENDAR.
var calendarKeywords = []string{
	"today", "tonight", "tomorrow", "next week", "this week",
	"appointment", "meeting", "call", "interview", "reservation", "visit",
	"lunch", "dinner", "breakfast",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// clockPattern matches clock times such as "3pm", "14:30" or "9:00 am".
var clockPattern = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s*(am|pm)\b|\b\d{1,2}:\d{2}\b`)

const fallbackSummaryLimit = 50

// fallbackConfidence is reported on memo results so they satisfy the same
// schema as model output. The heuristic has no real confidence signal.
const fallbackConfidence = 0.5

// Keyword is the degraded classifier used when no model is configured. It
// is a pure text heuristic: it never calls out and never fails.
type Keyword struct{}

// NewKeyword returns the keyword fallback classifier.
func NewKeyword() *Keyword { return &Keyword{} }

// Classify inspects the text for temporal keywords and clock patterns,
// emitting CALENDAR on any hit and MEMO otherwise.
func (k *Keyword) Classify(_ context.Context, in Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	lower := strings.ToLower(text)

	isCalendar := clockPattern.MatchString(lower)
	if !isCalendar {
		for _, kw := range calendarKeywords {
			if strings.Contains(lower, kw) {
				isCalendar = true
				break
			}
		}
	}

	res := &Result{Kind: KindMemo, Category: DefaultMemoCategory}
	if isCalendar {
		res.Kind = KindCalendar
		res.Category = DefaultCalendarCategory
	} else {
		conf := fallbackConfidence
		res.Confidence = &conf
	}

	res.Summary = text
	if r := []rune(res.Summary); len(r) > fallbackSummaryLimit {
		res.Summary = string(r[:fallbackSummaryLimit])
	}
	if res.Summary == "" {
		if isCalendar {
			res.Summary = "Attached schedule"
		} else {
			res.Summary = "Attached memo"
		}
	}

	res.Content = text
	if res.Content == "" {
		res.Content = "(attachment)"
	}
	return res, nil
}
