package ai

import (
	"fmt"
	"strings"
	"time"
)

const promptTemplate = `You are the classification engine of a capture inbox. Decide whether the
input describes a calendar event or a note, extract the fields below, and
respond with a single JSON object. No prose, no code fences.

Today is %s (timezone %s). Resolve relative expressions like "tomorrow" or
"next friday" against it.

Common fields:
- "type": "CALENDAR" for anything with a date, time or appointment; "MEMO" otherwise
- "summary": short title, required
- "content": the input text, lightly cleaned
- "category": one label
- "priority": "low", "medium" or "high" when the input implies urgency

CALENDAR fields:
- "start_time" / "end_time": ISO 8601 timestamps
- "all_day": true for date-only events
- "location", "attendees", "meeting_url" when mentioned
- "recurrence": "daily", "weekly", "monthly" or "yearly" for repeating events

MEMO fields:
- "body": the note text, formatted
- "due_date": ISO 8601 date when a deadline is mentioned
- "memo_status": "not-started", "in-progress" or "done"
- "confidence": number in [0,1], how certain the MEMO classification is

%s`

// buildPrompt renders the instruction block sent alongside the content
// parts. Category vocabularies, when present, constrain the label choice.
func buildPrompt(now time.Time, calendarCategories, memoCategories []string) string {
	return fmt.Sprintf(promptTemplate,
		now.Format("Monday, 2006-01-02"),
		now.Location().String(),
		categoryConstraints(calendarCategories, memoCategories),
	)
}

func categoryConstraints(calendar, memo []string) string {
	var b strings.Builder
	if len(calendar) > 0 {
		fmt.Fprintf(&b, "For CALENDAR, pick \"category\" from: %s.\n", strings.Join(calendar, ", "))
	}
	if len(memo) > 0 {
		fmt.Fprintf(&b, "For MEMO, pick \"category\" from: %s.\n", strings.Join(memo, ", "))
	}
	if b.Len() == 0 {
		return "Choose a concise \"category\" label yourself."
	}
	return strings.TrimRight(b.String(), "\n")
}
