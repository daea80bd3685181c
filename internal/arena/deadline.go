package arena

import "time"

// Deadlines computes the hard and final deadlines for a quest started at
// startedAt. The hard deadline ends the on-time window; the final deadline
// adds the late-submission grace window when late submissions are allowed,
// otherwise the two coincide. All arithmetic happens in UTC.
func Deadlines(startedAt time.Time, plannedMinutes, lateWindowMinutes int, allowLate bool) (hard, final time.Time) {
	start := startedAt.UTC()
	hard = start.Add(time.Duration(plannedMinutes) * time.Minute)
	final = hard
	if allowLate {
		final = hard.Add(time.Duration(lateWindowMinutes) * time.Minute)
	}
	return hard, final
}

// SubmissionWindow classifies an instant against a quest's deadlines.
type SubmissionWindow int

const (
	OnTime SubmissionWindow = iota
	Late
	Rejected
)

// Classify places now within the quest's submission windows. A late result is
// only reachable when the quest allows late submissions; otherwise anything
// past the hard deadline is rejected.
func Classify(now, startedAt time.Time, plannedMinutes, lateWindowMinutes int, allowLate bool) SubmissionWindow {
	hard, final := Deadlines(startedAt, plannedMinutes, lateWindowMinutes, allowLate)
	now = now.UTC()
	switch {
	case !now.After(hard):
		return OnTime
	case allowLate && !now.After(final):
		return Late
	default:
		return Rejected
	}
}

// ParseUTC parses a stored timestamp. Stored values carry an explicit zone
// marker, but a value without one is treated as UTC, never local time, so a
// legacy row cannot skew deadline math.
func ParseUTC(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

// FormatUTC renders t the way the store expects timestamps: RFC 3339 in UTC.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
