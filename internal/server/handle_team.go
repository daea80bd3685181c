package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// TeamLookupResponse is returned when resolving a join token before joining.
type TeamLookupResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JoinRequest is the request body for POST /api/join.
type JoinRequest struct {
	JoinToken  string `json:"joinToken"`
	MemberName string `json:"memberName"`
}

// JoinResponse carries the session token for subsequent team calls.
type JoinResponse struct {
	Token    string `json:"token"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

func handleTeamLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		joinToken := chi.URLParam(r, "joinToken")

		team, err := store.TeamByJoinToken(r.Context(), joinToken)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, TeamLookupResponse{ID: team.ID, Name: team.Name})
	}
}

func handleJoin(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.MemberName = strings.TrimSpace(req.MemberName)
		if req.MemberName == "" || req.JoinToken == "" {
			writeError(w, http.StatusBadRequest, "joinToken and memberName are required")
			return
		}

		team, err := store.TeamByJoinToken(r.Context(), req.JoinToken)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sessionID, err := store.JoinTeam(r.Context(), team.ID, req.MemberName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:    sessionID,
			TeamID:   team.ID,
			TeamName: team.Name,
		})
	}
}
