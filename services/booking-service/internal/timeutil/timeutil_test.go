package timeutil

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, s := range []string{"2026-02-30", "2026-13-01", "2026-00-10", "15-03-2026", "2026/03/15", "2026-3-5", ""} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) accepted", s)
		}
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"08:00": 480,
		"09:30": 570,
		"18:00": 1080,
		"23:59": 1439,
	}
	for s, want := range cases {
		got, err := ParseClock(s)
		if err != nil {
			t.Errorf("ParseClock(%q): %v", s, err)
			continue
		}
		if got != want {
			t.Errorf("ParseClock(%q) = %d, want %d", s, got, want)
		}
	}
}

func TestParseClockRejectsInvalid(t *testing.T) {
	for _, s := range []string{"24:00", "09:60", "9:30", "09:5", "0930", "09-30", "aa:bb", ""} {
		if _, err := ParseClock(s); err == nil {
			t.Errorf("ParseClock(%q) accepted", s)
		}
	}
}

func TestCombineAndMinuteOfDay(t *testing.T) {
	date, _ := ParseDate("2026-03-15")
	at := Combine(date, 570)
	want := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("Combine = %v, want %v", at, want)
	}
	if m := MinuteOfDay(at); m != 570 {
		t.Fatalf("MinuteOfDay = %d, want 570", m)
	}
}

func TestFormatClock(t *testing.T) {
	if s := FormatClock(480); s != "08:00" {
		t.Errorf("FormatClock(480) = %q", s)
	}
	if s := FormatClock(1035); s != "17:15" {
		t.Errorf("FormatClock(1035) = %q", s)
	}
}

func TestSplit(t *testing.T) {
	at := time.Date(2026, 3, 15, 14, 45, 0, 0, time.UTC)
	date, clock := Split(at)
	if date != "2026-03-15" || clock != "14:45" {
		t.Fatalf("Split = (%q, %q)", date, clock)
	}
}
