package ai

import (
	"fmt"
	"time"
)

// dateTimeLayouts are the ISO-8601 shapes the model emits, most specific
// first. RFC 3339 covers offsets and the trailing Z.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDateTime parses an ISO timestamp or bare date. Zone-less values are
// interpreted in loc; a bare date resolves to midnight.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", value)
}
