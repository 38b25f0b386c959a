package uploader

import "strings"

var rruleByRecurrence = map[string]string{
	"daily":   "RRULE:FREQ=DAILY",
	"weekly":  "RRULE:FREQ=WEEKLY",
	"monthly": "RRULE:FREQ=MONTHLY",
	"yearly":  "RRULE:FREQ=YEARLY",
}

// RecurrenceRule maps the classifier's recurrence keyword to a Google Calendar
// RRULE list. Unknown keywords produce nil (the event is not recurring).
func RecurrenceRule(recurrence string) []string {
	if r, ok := rruleByRecurrence[strings.ToLower(strings.TrimSpace(recurrence))]; ok {
		return []string{r}
	}
	return nil
}
