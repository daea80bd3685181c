package server

import (
	"context"
	"net/http"

	"github.com/questrun/arena/internal/arena"
)

// RankingRow is one leaderboard entry.
type RankingRow struct {
	Position   int     `json:"position"`
	TeamID     string  `json:"teamId"`
	TeamName   string  `json:"teamName"`
	TotalScore float64 `json:"totalScore"`
	Evaluated  int     `json:"evaluated"`
	Penalties  int     `json:"penalties"`
}

// computeRanking loads a snapshot and runs the pure fold. It never writes and
// needs no coordination with the state machine.
func computeRanking(ctx context.Context, store Store) ([]RankingRow, error) {
	teams, err := store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := store.ListSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	quests, err := store.ListQuests(ctx)
	if err != nil {
		return nil, err
	}
	penalties, err := store.ListPenalties(ctx)
	if err != nil {
		return nil, err
	}

	questsByID := make(map[string]arena.Quest, len(quests))
	for _, q := range quests {
		questsByID[q.ID] = q
	}

	scores := arena.Ranking(teams, subs, questsByID, penalties)
	rows := make([]RankingRow, 0, len(scores))
	for i, s := range scores {
		rows = append(rows, RankingRow{
			Position:   i + 1,
			TeamID:     s.TeamID,
			TeamName:   s.TeamName,
			TotalScore: s.TotalScore,
			Evaluated:  s.Evaluated,
			Penalties:  s.Penalties,
		})
	}
	return rows, nil
}

func handleRanking(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := computeRanking(r.Context(), store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}
