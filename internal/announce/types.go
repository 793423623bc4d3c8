package announce

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects which optional fields of an Announcement are meaningful
// and how the outgoing message is rendered.
type Kind string

const (
	KindCustom   Kind = "custom"
	KindPractice Kind = "practice"
)

// Recurrence is the repeat policy of an announcement.
//
// The front-end only offers "none" and "weekly"; "daily" and "monthly"
// are accepted by the trigger calculator all the same.
type Recurrence string

const (
	RepeatNone    Recurrence = "none"
	RepeatDaily   Recurrence = "daily"
	RepeatWeekly  Recurrence = "weekly"
	RepeatMonthly Recurrence = "monthly"
)

// Announcement is one persisted scheduled message.
//
// The JSON field names are the on-disk schema; changing them breaks
// existing collections.
type Announcement struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"type"`
	Text         string     `json:"text"`
	Location     string     `json:"location,omitempty"`
	PracticeTime string     `json:"practice_time,omitempty"`
	At           LocalTime  `json:"datetime"`
	Repeating    Recurrence `json:"repeating"`
	Audience     string     `json:"role_id"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    LocalTime  `json:"created_at"`
}

// Render formats the outgoing message body for this announcement.
// mention may be empty when the audience could not be resolved.
func (a Announcement) Render(mention string) string {
	var b strings.Builder
	if mention != "" {
		b.WriteString(mention)
		b.WriteString("\n\n")
	}
	switch a.Kind {
	case KindPractice:
		pt := a.PracticeTime
		if pt == "" {
			pt = "TBD"
		}
		fmt.Fprintf(&b, "*Practice Announcement*\n*Time:* %s\n*Location:* %s", pt, a.Location)
	default:
		b.WriteString(a.Text)
	}
	return b.String()
}

// Summary is a short one-line description used in logs and listings.
func (a Announcement) Summary() string {
	when := a.At.Time().Format("Jan 2 15:04")
	repeat := "one-time"
	if a.Repeating != RepeatNone {
		repeat = string(a.Repeating)
	}
	if a.Kind == KindPractice {
		return fmt.Sprintf("practice at %s (%s, %s)", a.Location, when, repeat)
	}
	text := a.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}
	return fmt.Sprintf("%s (%s, %s)", text, when, repeat)
}

// localLayout is the persisted datetime format: ISO-8601 without an
// offset, interpreted in the process-local timezone.
const localLayout = "2006-01-02T15:04:05"

// LocalTime is a time.Time that marshals without a timezone offset.
//
// The collection file stores naive local datetimes; encoding a plain
// time.Time would silently switch the schema to RFC 3339.
type LocalTime struct {
	t time.Time
}

func NewLocalTime(t time.Time) LocalTime { return LocalTime{t: t} }

func (l LocalTime) Time() time.Time { return l.t }
func (l LocalTime) IsZero() bool    { return l.t.IsZero() }

func (l LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.t.Format(localLayout) + `"`), nil
}

func (l *LocalTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		l.t = time.Time{}
		return nil
	}
	// Prefer the naive layout; tolerate fractional seconds and full
	// RFC 3339 stamps written by other tools.
	for _, layout := range []string{localLayout, "2006-01-02T15:04:05.999999999", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			l.t = t
			return nil
		}
	}
	return fmt.Errorf("invalid datetime %q", s)
}

func (l LocalTime) String() string { return l.t.Format(localLayout) }
