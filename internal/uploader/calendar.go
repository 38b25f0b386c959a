package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/intraylabs/intray/internal/ai"
)

const (
	defaultCalendarBaseURL = "https://www.googleapis.com"
	calendarTimeout        = 30 * time.Second

	// naive local timestamp; the zone rides in the timeZone field
	calendarTimeLayout = "2006-01-02T15:04:05"
	calendarDateLayout = "2006-01-02"

	fallbackStartHour = 14
)

// Google Calendar color ids by category label.
var colorByCategory = map[string]string{
	"work":      "11",
	"personal":  "2",
	"meeting":   "5",
	"important": "4",
}

const defaultColorID = "1"

// Calendar inserts events on the Google Calendar REST API.
type Calendar struct {
	client *resty.Client
	loc    *time.Location
	tzName string
}

// CalendarConfig controls the Calendar uploader. Zero values select the
// public Google endpoint and UTC.
type CalendarConfig struct {
	BaseURL  string
	Location *time.Location
}

func NewCalendar(cfg CalendarConfig) *Calendar {
	base := cfg.BaseURL
	if base == "" {
		base = defaultCalendarBaseURL
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	client := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(calendarTimeout)
	return &Calendar{client: client, loc: loc, tzName: loc.String()}
}

type calendarTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type calendarReminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []calendarOverride `json:"overrides,omitempty"`
}

type calendarOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type conferenceData struct {
	CreateRequest conferenceRequest `json:"createRequest"`
}

type conferenceRequest struct {
	RequestID   string                `json:"requestId"`
	SolutionKey conferenceSolutionKey `json:"conferenceSolutionKey"`
}

type conferenceSolutionKey struct {
	Type string `json:"type"`
}

type calendarEvent struct {
	Summary        string             `json:"summary"`
	Description    string             `json:"description"`
	Start          calendarTime       `json:"start"`
	End            calendarTime       `json:"end"`
	Location       string             `json:"location,omitempty"`
	Recurrence     []string           `json:"recurrence,omitempty"`
	ColorID        string             `json:"colorId,omitempty"`
	Status         string             `json:"status,omitempty"`
	Visibility     string             `json:"visibility,omitempty"`
	Reminders      *calendarReminders `json:"reminders,omitempty"`
	ConferenceData *conferenceData    `json:"conferenceData,omitempty"`
}

type calendarEventResponse struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

type calendarOutcome struct {
	Type    string `json:"type"`
	Link    string `json:"link"`
	EventID string `json:"eventId"`
}

// Upload inserts one event into the user's calendar. TargetID selects the
// calendar; empty means the primary calendar.
func (c *Calendar) Upload(ctx context.Context, creds Credentials, req Request) (json.RawMessage, error) {
	if creds.Token == "" {
		return nil, errors.New("google token required for calendar upload")
	}
	calendarID := creds.TargetID
	if calendarID == "" {
		calendarID = "primary"
	}

	event := c.buildEvent(req)
	r := c.client.R().
		SetContext(ctx).
		SetAuthToken(creds.Token).
		SetBody(&event)
	if event.ConferenceData != nil {
		r.SetQueryParam("conferenceDataVersion", "1")
	}
	resp, err := r.Post(fmt.Sprintf("/calendar/v3/calendars/%s/events", url.PathEscape(calendarID)))
	if err != nil {
		return nil, fmt.Errorf("calendar insert: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("calendar insert returned status %d: %s", resp.StatusCode(), resp.String())
	}
	var created calendarEventResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("decode calendar response: %w", err)
	}
	return json.Marshal(calendarOutcome{Type: "calendar", Link: created.HTMLLink, EventID: created.ID})
}

func (c *Calendar) buildEvent(req Request) calendarEvent {
	res := req.Result
	ev := calendarEvent{
		Summary:     res.Summary,
		Description: firstNonEmpty(res.Content, res.Body),
		Location:    res.Location,
		Recurrence:  RecurrenceRule(res.Recurrence),
		Status:      res.EventStatus,
		Visibility:  res.Visibility,
	}
	if ev.Summary == "" {
		ev.Summary = truncateRunes(req.SourceText, 50)
	}
	if res.Category != "" {
		color, ok := colorByCategory[strings.ToLower(res.Category)]
		if !ok {
			color = defaultColorID
		}
		ev.ColorID = color
	}
	if len(res.Reminders) > 0 {
		rem := &calendarReminders{UseDefault: false}
		for _, o := range res.Reminders {
			rem.Overrides = append(rem.Overrides, calendarOverride{Method: o.Method, Minutes: o.Minutes})
		}
		ev.Reminders = rem
	}
	if res.CreateMeet {
		ev.ConferenceData = &conferenceData{CreateRequest: conferenceRequest{
			RequestID:   uuid.New().String(),
			SolutionKey: conferenceSolutionKey{Type: "hangoutsMeet"},
		}}
	}

	loc, tz := c.loc, c.tzName
	if res.Timezone != "" {
		if l, err := time.LoadLocation(res.Timezone); err == nil {
			loc, tz = l, res.Timezone
		}
	}

	if res.AllDay {
		ev.Start, ev.End = allDayTimes(res, loc)
		return ev
	}

	start, ok := parseInLoc(res.StartTime, loc)
	if !ok {
		// no usable start: default to 14:00 today
		now := time.Now().In(loc)
		start = time.Date(now.Year(), now.Month(), now.Day(), fallbackStartHour, 0, 0, 0, loc)
	}
	end, ok := parseInLoc(res.EndTime, loc)
	if !ok || !end.After(start) {
		end = start.Add(time.Hour)
	}
	ev.Start = calendarTime{DateTime: start.Format(calendarTimeLayout), TimeZone: tz}
	ev.End = calendarTime{DateTime: end.Format(calendarTimeLayout), TimeZone: tz}
	return ev
}

// allDayTimes builds date-only boundaries. Google treats the end date as
// exclusive, so single-day events span [start, start+1d).
func allDayTimes(res *ai.Result, loc *time.Location) (calendarTime, calendarTime) {
	start, ok := parseInLoc(res.StartTime, loc)
	if !ok {
		start = time.Now().In(loc)
	}
	end, ok := parseInLoc(res.EndTime, loc)
	if !ok || end.Before(start) {
		end = start
	}
	return calendarTime{Date: start.Format(calendarDateLayout)},
		calendarTime{Date: end.AddDate(0, 0, 1).Format(calendarDateLayout)}
}

func parseInLoc(value string, loc *time.Location) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := ai.ParseDateTime(value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
