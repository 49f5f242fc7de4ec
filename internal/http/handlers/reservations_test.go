package handlers

import (
	"testing"
	"time"
)

func TestValidTimeSlot(t *testing.T) {
	cases := []struct {
		slot string
		want bool
	}{
		{"11:00 AM", true},
		{"1:30 PM", true},
		{"7:00 PM", true},
		{"10:00 PM", true},
		{"10:30 PM", false},
		{"4:00 PM", false},
		{"11:00", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := validTimeSlot(tc.slot); got != tc.want {
			t.Errorf("validTimeSlot(%q) = %v, want %v", tc.slot, got, tc.want)
		}
	}
}

func TestTimeSlotsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, slot := range timeSlots {
		if seen[slot] {
			t.Errorf("duplicate slot %q", slot)
		}
		seen[slot] = true
	}
}

func TestParseReservationDate(t *testing.T) {
	date, ok := parseReservationDate("2026-09-15")
	if !ok {
		t.Fatal("expected valid date")
	}
	if date.Year() != 2026 || date.Month() != time.September || date.Day() != 15 {
		t.Errorf("parsed wrong date: %v", date)
	}

	for _, bad := range []string{"", "15-09-2026", "2026/09/15", "tomorrow", "2026-13-01"} {
		if _, ok := parseReservationDate(bad); ok {
			t.Errorf("parseReservationDate(%q) accepted invalid input", bad)
		}
	}

	// Leading whitespace is tolerated, the wire format often carries it.
	if _, ok := parseReservationDate(" 2026-09-15 "); !ok {
		t.Error("expected trimmed date to parse")
	}
}
