package server

import (
	"errors"
	"net/http"

	"github.com/questrun/arena/internal/arena"
)

// EventInfo is the shared event state as seen by teams.
type EventInfo struct {
	CurrentPhase   int     `json:"currentPhase"`
	EventStarted   bool    `json:"eventStarted"`
	EventEnded     bool    `json:"eventEnded"`
	EventStartTime *string `json:"eventStartTime"`
}

// GameStateResponse is the full per-team view: event pointer, active quest
// with deadlines, and the team's submission for it, if any.
type GameStateResponse struct {
	Event        EventInfo       `json:"event"`
	TeamID       string          `json:"teamId"`
	TeamName     string          `json:"teamName"`
	ActiveQuest  *QuestItem      `json:"activeQuest"`
	MySubmission *SubmissionItem `json:"mySubmission"`
}

func handleGameState(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := teamFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		cfg, err := store.EventConfig(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := GameStateResponse{
			Event: EventInfo{
				CurrentPhase: cfg.CurrentPhase,
				EventStarted: cfg.EventStarted,
				EventEnded:   cfg.EventEnded,
			},
			TeamID:   sess.TeamID,
			TeamName: sess.TeamName,
		}
		if cfg.EventStartTime != nil {
			s := arena.FormatUTC(*cfg.EventStartTime)
			resp.Event.EventStartTime = &s
		}

		if cfg.EventStarted && !cfg.EventEnded && cfg.CurrentPhase != arena.PreparationPhase {
			quest, err := store.ActiveQuest(r.Context(), cfg.CurrentPhase)
			if err != nil && !errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if err == nil {
				item := questItem(quest)
				resp.ActiveQuest = &item

				sub, err := store.SubmissionFor(r.Context(), sess.TeamID, quest.ID)
				if err != nil && !errors.Is(err, ErrNotFound) {
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				if err == nil {
					s := submissionItem(sub)
					resp.MySubmission = &s
				}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
