package ui

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 3, "abc"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestTruncateMiddle_KeepsBothEnds(t *testing.T) {
	got := truncateMiddle("/home/user/.local/share/rollcall/rollcall.log", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("truncateMiddle length = %d, want 20 (%q)", len([]rune(got)), got)
	}
	if got[:6] != "/home/" || got[len(got)-len("rollcall.log"):] != "rollcall.log" {
		t.Fatalf("truncateMiddle = %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"already_marked": "Already Marked",
		"PRESENT":        "Present",
		"":               "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q", got)
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Fatalf("padRight should not cut, got %q", got)
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-20 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-48 * time.Hour), "Jun 29 12:00"},
	}
	for _, tt := range tests {
		if got := formatAgo(tt.at, now); got != tt.want {
			t.Errorf("formatAgo(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := map[int]string{-5: "0m", 45: "45m", 60: "1h 00m", 125: "2h 05m"}
	for in, want := range tests {
		if got := formatMinutes(in); got != want {
			t.Errorf("formatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
}
