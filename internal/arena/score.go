package arena

import (
	"sort"
	"time"
)

// Multiplier bounds applied during evaluation and again during the fold, so a
// bad stored row cannot inflate a score.
const (
	MinMultiplier = 1.0
	MaxMultiplier = 2.0
)

// TeamScore is one leaderboard row.
type TeamScore struct {
	TeamID     string
	TeamName   string
	TotalScore float64
	Evaluated  int
	Penalties  int
}

// FinalPoints computes the points an evaluated submission contributes:
// base clamped to [0, maxPoints], scaled by the multiplier clamped to
// [MinMultiplier, MaxMultiplier].
func FinalPoints(basePoints float64, multiplier float64, maxPoints int) float64 {
	base := clamp(basePoints, 0, float64(maxPoints))
	return base * clamp(multiplier, MinMultiplier, MaxMultiplier)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Ranking folds evaluated submissions and penalties into a total order over
// teams. It is a pure projection: safe to recompute at any time, against any
// snapshot, with no side effects. Totals may go negative when penalties
// exceed earned points.
//
// Ties break on the earlier last-evaluation time (the team that reached the
// score first wins), then on team name, so the order is fully deterministic.
func Ranking(teams []Team, submissions []Submission, quests map[string]Quest, penalties []Penalty) []TeamScore {
	totals := make(map[string]*TeamScore, len(teams))
	lastEval := make(map[string]time.Time, len(teams))
	for _, t := range teams {
		totals[t.ID] = &TeamScore{TeamID: t.ID, TeamName: t.Name}
	}

	for _, s := range submissions {
		if s.Status != SubmissionEvaluated || s.BasePoints == nil || s.Multiplier == nil {
			continue
		}
		row, ok := totals[s.TeamID]
		if !ok {
			continue
		}
		q, ok := quests[s.QuestID]
		if !ok {
			continue
		}
		row.TotalScore += FinalPoints(*s.BasePoints, *s.Multiplier, q.MaxPoints)
		row.Evaluated++
		if s.EvaluatedAt != nil && s.EvaluatedAt.After(lastEval[s.TeamID]) {
			lastEval[s.TeamID] = *s.EvaluatedAt
		}
	}

	for _, p := range penalties {
		if row, ok := totals[p.TeamID]; ok {
			row.TotalScore -= float64(p.PointsDeduction)
			row.Penalties++
		}
	}

	out := make([]TeamScore, 0, len(totals))
	for _, row := range totals {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		ea, eb := lastEval[a.TeamID], lastEval[b.TeamID]
		if !ea.Equal(eb) {
			return ea.Before(eb)
		}
		return a.TeamName < b.TeamName
	})
	return out
}
