package subtitle

import (
	"testing"
	"time"

	"studio/internal/domain"
)

func TestSRT(t *testing.T) {
	scenes := []domain.Scene{
		{Duration: 5, Dialog: "Where were you?"},
		{Duration: 4},
		{Duration: 6, Dialog: "  Stuck in traffic.  "},
	}
	want := "1\n00:00:00,000 --> 00:00:05,000\nWhere were you?\n\n" +
		"2\n00:00:09,000 --> 00:00:15,000\nStuck in traffic.\n"
	if got := SRT(scenes); got != want {
		t.Fatalf("SRT mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestTimestamp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{61 * time.Minute, "01:01:00,000"},
	}
	for _, tc := range cases {
		if got := timestamp(tc.in); got != tc.want {
			t.Errorf("timestamp(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestSRTEmpty(t *testing.T) {
	if got := SRT([]domain.Scene{{Duration: 5}}); got != "" {
		t.Fatalf("expected empty document, got %q", got)
	}
}
