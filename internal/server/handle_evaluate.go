package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/questrun/arena/internal/arena"
)

// EvaluateRequest is the request body for POST /api/admin/submissions/{id}/evaluate.
type EvaluateRequest struct {
	BasePoints float64 `json:"basePoints"`
	Multiplier float64 `json:"multiplier"`
}

// SubmissionItem is the wire form of a submission.
type SubmissionItem struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"teamId"`
	QuestID     string   `json:"questId"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
	Late        bool     `json:"late"`
	SubmittedAt string   `json:"submittedAt"`
	BasePoints  *float64 `json:"basePoints,omitempty"`
	Multiplier  *float64 `json:"multiplier,omitempty"`
	FinalPoints *float64 `json:"finalPoints,omitempty"`
}

func submissionItem(sub arena.Submission) SubmissionItem {
	return SubmissionItem{
		ID:          sub.ID,
		TeamID:      sub.TeamID,
		QuestID:     sub.QuestID,
		Content:     sub.Content,
		Status:      string(sub.Status),
		Late:        sub.Late,
		SubmittedAt: arena.FormatUTC(sub.SubmittedAt),
		BasePoints:  sub.BasePoints,
		Multiplier:  sub.Multiplier,
		FinalPoints: sub.FinalPoints,
	}
}

func handleListSubmissions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := store.ListSubmissions(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		items := make([]SubmissionItem, 0, len(subs))
		for _, sub := range subs {
			items = append(items, submissionItem(sub))
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleEvaluateSubmission(store Store, machine *Machine, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := staffFrom(r)
		id := chi.URLParam(r, "id")

		var req EvaluateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Multiplier < arena.MinMultiplier || req.Multiplier > arena.MaxMultiplier {
			writeError(w, http.StatusBadRequest, "multiplier must be between 1.0 and 2.0")
			return
		}
		if req.BasePoints < 0 {
			writeError(w, http.StatusBadRequest, "basePoints must not be negative")
			return
		}

		sub, err := store.SubmissionByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "submission not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		quest, err := store.QuestByID(r.Context(), sub.QuestID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		final := arena.FinalPoints(req.BasePoints, req.Multiplier, quest.MaxPoints)
		evaluated, err := store.EvaluateSubmission(r.Context(), id,
			req.BasePoints, req.Multiplier, final, sess.StaffID, machine.now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !evaluated {
			writeError(w, http.StatusConflict, "submission already evaluated")
			return
		}

		broker.Publish(TopicRanking, Event{Type: "submission_evaluated", TeamID: sub.TeamID})

		sub, err = store.SubmissionByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, submissionItem(sub))
	}
}
