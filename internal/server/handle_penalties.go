package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/questrun/arena/internal/arena"
)

// PenaltyRequest is the request body for POST /api/admin/penalties.
type PenaltyRequest struct {
	TeamID          string `json:"teamId"`
	Type            string `json:"type"`
	PointsDeduction int    `json:"pointsDeduction"`
	Reason          string `json:"reason,omitempty"`
	PhaseApplied    *int   `json:"phaseApplied,omitempty"`
}

// PenaltyItem is the wire form of a ledger entry.
type PenaltyItem struct {
	ID              string `json:"id"`
	TeamID          string `json:"teamId"`
	Type            string `json:"type"`
	PointsDeduction int    `json:"pointsDeduction"`
	Reason          string `json:"reason,omitempty"`
	PhaseApplied    *int   `json:"phaseApplied,omitempty"`
	AssignedByAdmin bool   `json:"assignedByAdmin"`
	CreatedAt       string `json:"createdAt"`
}

func (req *PenaltyRequest) validate(role string) string {
	req.TeamID = strings.TrimSpace(req.TeamID)
	req.Type = strings.TrimSpace(req.Type)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.TeamID == "" {
		return "teamId is required"
	}
	if !arena.ValidPenaltyType(arena.PenaltyType(req.Type)) {
		return "type must be plagio, desorganizacao, desrespeito, ausencia, or atraso"
	}

	min := arena.PenaltyMinDeductionAdmin
	if role == roleEvaluator {
		min = arena.PenaltyMinDeductionEvaluator
	}
	if req.PointsDeduction < min || req.PointsDeduction > arena.PenaltyMaxDeduction {
		return "pointsDeduction out of range"
	}
	if req.PhaseApplied != nil &&
		(*req.PhaseApplied < arena.PreparationPhase || *req.PhaseApplied > arena.MaxPhase) {
		return "phaseApplied out of range"
	}
	return ""
}

func handleAssignPenalty(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := staffFrom(r)

		var req PenaltyRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(sess.Role); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		p := arena.Penalty{
			ID:              newID(),
			TeamID:          req.TeamID,
			Type:            arena.PenaltyType(req.Type),
			PointsDeduction: req.PointsDeduction,
			Reason:          req.Reason,
			PhaseApplied:    req.PhaseApplied,
			AssignedByAdmin: sess.Role == roleAdmin,
			AssignedBy:      sess.StaffID,
			CreatedAt:       time.Now().UTC(),
		}
		if err := store.InsertPenalty(r.Context(), p); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(TopicRanking, Event{Type: "penalty_assigned", TeamID: p.TeamID})

		writeJSON(w, http.StatusCreated, penaltyItem(p))
	}
}

func penaltyItem(p arena.Penalty) PenaltyItem {
	return PenaltyItem{
		ID:              p.ID,
		TeamID:          p.TeamID,
		Type:            string(p.Type),
		PointsDeduction: p.PointsDeduction,
		Reason:          p.Reason,
		PhaseApplied:    p.PhaseApplied,
		AssignedByAdmin: p.AssignedByAdmin,
		CreatedAt:       arena.FormatUTC(p.CreatedAt),
	}
}

func handleListPenalties(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		penalties, err := store.ListPenalties(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		items := make([]PenaltyItem, 0, len(penalties))
		for _, p := range penalties {
			items = append(items, penaltyItem(p))
		}
		writeJSON(w, http.StatusOK, items)
	}
}
