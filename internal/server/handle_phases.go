package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/questrun/arena/internal/arena"
)

// PhaseItem is one phase with its quests, as returned to admins.
type PhaseItem struct {
	Number          int         `json:"number"`
	Name            string      `json:"name"`
	Status          string      `json:"status"`
	StartedAt       *string     `json:"startedAt"`
	CompletedAt     *string     `json:"completedAt"`
	DurationMinutes int         `json:"durationMinutes"`
	Quests          []QuestItem `json:"quests"`
}

// QuestItem is the wire form of a quest, deadlines included when started.
type QuestItem struct {
	ID                     string  `json:"id"`
	PhaseNumber            int     `json:"phaseNumber"`
	OrderIndex             int     `json:"orderIndex"`
	Name                   string  `json:"name"`
	Status                 string  `json:"status"`
	StartedAt              *string `json:"startedAt"`
	EndedAt                *string `json:"endedAt"`
	PlannedDeadlineMinutes int     `json:"plannedDeadlineMinutes"`
	LateWindowMinutes      int     `json:"lateSubmissionWindowMinutes"`
	AllowLateSubmissions   bool    `json:"allowLateSubmissions"`
	MaxPoints              int     `json:"maxPoints"`
	HardDeadline           *string `json:"hardDeadline,omitempty"`
	FinalDeadline          *string `json:"finalDeadline,omitempty"`
}

func questItem(q arena.Quest) QuestItem {
	item := QuestItem{
		ID:                     q.ID,
		PhaseNumber:            q.PhaseNumber,
		OrderIndex:             q.OrderIndex,
		Name:                   q.Name,
		Status:                 string(q.Status),
		PlannedDeadlineMinutes: q.PlannedDeadlineMinutes,
		LateWindowMinutes:      q.LateWindowMinutes,
		AllowLateSubmissions:   q.AllowLateSubmissions,
		MaxPoints:              q.MaxPoints,
	}
	if q.StartedAt != nil {
		s := arena.FormatUTC(*q.StartedAt)
		item.StartedAt = &s

		hard, final := arena.Deadlines(*q.StartedAt, q.PlannedDeadlineMinutes,
			q.LateWindowMinutes, q.AllowLateSubmissions)
		h, f := arena.FormatUTC(hard), arena.FormatUTC(final)
		item.HardDeadline = &h
		item.FinalDeadline = &f
	}
	if q.EndedAt != nil {
		s := arena.FormatUTC(*q.EndedAt)
		item.EndedAt = &s
	}
	return item
}

func handleListPhases(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phases, err := store.ListPhases(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		quests, err := store.ListQuests(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		byPhase := make(map[int][]QuestItem)
		for _, q := range quests {
			byPhase[q.PhaseNumber] = append(byPhase[q.PhaseNumber], questItem(q))
		}

		items := make([]PhaseItem, 0, len(phases))
		for _, p := range phases {
			item := PhaseItem{
				Number:          p.Number,
				Name:            p.Name,
				Status:          string(p.Status),
				DurationMinutes: p.DurationMinutes,
				Quests:          byPhase[p.Number],
			}
			if p.StartedAt != nil {
				s := arena.FormatUTC(*p.StartedAt)
				item.StartedAt = &s
			}
			if p.CompletedAt != nil {
				s := arena.FormatUTC(*p.CompletedAt)
				item.CompletedAt = &s
			}
			items = append(items, item)
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleStartPhase(machine *Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(chi.URLParam(r, "number"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "phase number must be an integer")
			return
		}

		err = machine.StartPhase(r.Context(), number)
		switch {
		case errors.Is(err, ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "phase not found")
		case errors.Is(err, ErrConflict):
			writeError(w, http.StatusConflict, "event state changed, retry")
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusOK, map[string]int{"currentPhase": number})
		}
	}
}
