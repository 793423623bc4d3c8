package announce

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRenderPractice(t *testing.T) {
	t.Parallel()
	a := Announcement{
		Kind:         KindPractice,
		Location:     "Gym A",
		PracticeTime: "7pm-10pm",
	}
	got := a.Render("@team")
	if !strings.HasPrefix(got, "@team\n\n") {
		t.Fatalf("mention not prepended: %q", got)
	}
	if !strings.Contains(got, "*Time:* 7pm-10pm") || !strings.Contains(got, "*Location:* Gym A") {
		t.Fatalf("practice template missing fields: %q", got)
	}
}

func TestRenderPracticeDefaultsTime(t *testing.T) {
	t.Parallel()
	a := Announcement{Kind: KindPractice, Location: "Gym A"}
	if got := a.Render(""); !strings.Contains(got, "*Time:* TBD") {
		t.Fatalf("missing TBD fallback: %q", got)
	}
}

func TestRenderCustom(t *testing.T) {
	t.Parallel()
	a := Announcement{Kind: KindCustom, Text: "Tournament signup closes Friday"}

	if got := a.Render("@everyone"); got != "@everyone\n\nTournament signup closes Friday" {
		t.Fatalf("unexpected render: %q", got)
	}
	// No resolved mention: body only, no leading blank lines.
	if got := a.Render(""); got != "Tournament signup closes Friday" {
		t.Fatalf("unexpected render without mention: %q", got)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()
	at := NewLocalTime(time.Date(2026, 2, 15, 16, 0, 0, 0, time.Local))

	p := Announcement{Kind: KindPractice, Location: "Gym A", At: at, Repeating: RepeatWeekly}
	if got := p.Summary(); got != "practice at Gym A (Feb 15 16:00, weekly)" {
		t.Fatalf("practice summary: %q", got)
	}

	c := Announcement{Kind: KindCustom, Text: "Tournament signup closes Friday", At: at, Repeating: RepeatNone}
	if got := c.Summary(); got != "Tournament signup closes Friday (Feb 15 16:00, one-time)" {
		t.Fatalf("custom summary: %q", got)
	}

	long := Announcement{Kind: KindCustom, Text: strings.Repeat("a", 60), At: at, Repeating: RepeatNone}
	if got := long.Summary(); !strings.HasPrefix(got, strings.Repeat("a", 50)+"...") {
		t.Fatalf("long text not truncated: %q", got)
	}
}

func TestLocalTimeJSON(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 2, 15, 16, 0, 0, 0, time.Local)

	b, err := json.Marshal(NewLocalTime(at))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-02-15T16:00:00"` {
		t.Fatalf("naive layout expected, got %s", b)
	}

	var lt LocalTime
	if err := json.Unmarshal(b, &lt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !lt.Time().Equal(at) {
		t.Fatalf("roundtrip mismatch: %v != %v", lt.Time(), at)
	}
}

func TestLocalTimeAcceptsFractionsAndOffsets(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		`"2026-02-15T16:00:00.123456"`,
		`"2026-02-15T16:00:00+07:00"`,
	} {
		var lt LocalTime
		if err := json.Unmarshal([]byte(raw), &lt); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if lt.IsZero() {
			t.Fatalf("zero time from %s", raw)
		}
	}

	var lt LocalTime
	if err := json.Unmarshal([]byte(`"yesterday-ish"`), &lt); err == nil {
		t.Fatal("expected error for garbage datetime")
	}
}
