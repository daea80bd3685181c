package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/questrun/arena/internal/arena"
)

// SubmitRequest is the request body for POST /api/game/submit.
type SubmitRequest struct {
	Content string `json:"content"`
}

// SubmitResponse reports how the submission was classified.
type SubmitResponse struct {
	SubmissionID string `json:"submissionId"`
	QuestID      string `json:"questId"`
	Late         bool   `json:"late"`
	SubmittedAt  string `json:"submittedAt"`
}

func handleSubmit(store Store, machine *Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := teamFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req SubmitRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Content = strings.TrimSpace(req.Content)
		if req.Content == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}

		cfg, err := store.EventConfig(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !cfg.EventStarted || cfg.EventEnded || cfg.CurrentPhase == arena.PreparationPhase {
			writeError(w, http.StatusConflict, "event is not running")
			return
		}

		quest, err := store.ActiveQuest(r.Context(), cfg.CurrentPhase)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusConflict, "no active quest")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if quest.StartedAt == nil {
			writeError(w, http.StatusConflict, "quest has not started")
			return
		}

		now := machine.now().UTC()
		window := arena.Classify(now, *quest.StartedAt, quest.PlannedDeadlineMinutes,
			quest.LateWindowMinutes, quest.AllowLateSubmissions)
		if window == arena.Rejected {
			// Past the final deadline: reject and force the quest forward.
			machine.AdvanceQuest(r.Context(), quest.ID)
			writeError(w, http.StatusConflict, "submission window closed")
			return
		}

		sub := arena.Submission{
			ID:          newID(),
			TeamID:      sess.TeamID,
			QuestID:     quest.ID,
			Content:     req.Content,
			Status:      arena.SubmissionPending,
			Late:        window == arena.Late,
			SubmittedAt: now,
		}
		err = store.InsertSubmission(r.Context(), sub)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "already submitted for this quest")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, SubmitResponse{
			SubmissionID: sub.ID,
			QuestID:      quest.ID,
			Late:         sub.Late,
			SubmittedAt:  arena.FormatUTC(now),
		})
	}
}
