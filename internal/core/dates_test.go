package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := NewDate(2025, time.October, 14)
	for _, in := range []string{"2025-10-14", "14/10/2025", "2025/10/14", "45944"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
		if !got.Equal(want.Time) {
			t.Fatalf("%q: expected %s, got %s", in, want, got)
		}
	}
	for _, in := range []string{"", "ayer", "2025-13-01", "32/01/2025"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	cases := map[string]string{
		"08:15:00": "08:15:00",
		"8:15":     "08:15:00",
		"08:15":    "08:15:00",
		"0.5":      "12:00:00",
		"":         "",
		"tarde":    "",
	}
	for in, want := range cases {
		if got := NormalizeTime(in); got != want {
			t.Fatalf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestPeriod(t *testing.T) {
	p, err := ParsePeriod("2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.String() != "2025-03" {
		t.Fatalf("unexpected string %s", p)
	}
	if !p.Contains(NewDate(2025, time.March, 31)) || p.Contains(NewDate(2024, time.March, 1)) {
		t.Fatalf("unexpected Contains result")
	}
	if _, err := NewPeriod(2025, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
}
