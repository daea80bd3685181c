package arena

import (
	"testing"
	"time"
)

func TestDeadlines(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	hard, final := Deadlines(start, 30, 15, true)
	if want := start.Add(30 * time.Minute); !hard.Equal(want) {
		t.Errorf("hard = %v, want %v", hard, want)
	}
	if want := start.Add(45 * time.Minute); !final.Equal(want) {
		t.Errorf("final = %v, want %v", final, want)
	}

	// Late submissions disabled: both deadlines coincide.
	hard, final = Deadlines(start, 30, 15, false)
	if !final.Equal(hard) {
		t.Errorf("final = %v, want hard deadline %v", final, hard)
	}
}

func TestDeadlinesTimezoneIndependent(t *testing.T) {
	lima := time.FixedZone("America/Lima", -5*3600)
	utc := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	local := utc.In(lima)

	h1, f1 := Deadlines(utc, 45, 10, true)
	h2, f2 := Deadlines(local, 45, 10, true)
	if !h1.Equal(h2) || !f1.Equal(f2) {
		t.Errorf("deadlines differ by caller zone: (%v, %v) vs (%v, %v)", h1, f1, h2, f2)
	}
}

func TestClassify(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		at        time.Duration
		allowLate bool
		want      SubmissionWindow
	}{
		{"on time", 20 * time.Minute, true, OnTime},
		{"exactly hard deadline", 30 * time.Minute, true, OnTime},
		{"late within window", 40 * time.Minute, true, Late},
		{"exactly final deadline", 45 * time.Minute, true, Late},
		{"past final deadline", 50 * time.Minute, true, Rejected},
		{"late but not allowed", 40 * time.Minute, false, Rejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(start.Add(tc.at), start, 30, 15, tc.allowLate)
			if got != tc.want {
				t.Errorf("Classify(start+%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestParseUTC(t *testing.T) {
	// Explicit zone marker.
	got, err := ParseUTC("2026-03-14T10:00:00.5Z")
	if err != nil {
		t.Fatalf("ParseUTC: %v", err)
	}
	want := time.Date(2026, 3, 14, 10, 0, 0, 500_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// No zone marker: treated as UTC, never local.
	got, err = ParseUTC("2026-03-14T10:00:00")
	if err != nil {
		t.Fatalf("ParseUTC naive: %v", err)
	}
	want = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("naive timestamp: got %v, want %v", got, want)
	}

	if _, err := ParseUTC("not a timestamp"); err == nil {
		t.Error("expected error for garbage input")
	}
}
