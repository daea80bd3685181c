package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/questrun/arena/internal/arena"
)

// TeamRequest is the request body for creating a team.
type TeamRequest struct {
	Name      string `json:"name"`
	JoinToken string `json:"joinToken,omitempty"`
}

// TeamItem is the admin view of a team, join token included.
type TeamItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JoinToken string `json:"joinToken"`
	CreatedAt string `json:"createdAt"`
}

func generateJoinToken() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func handleCreateTeam(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.JoinToken = strings.TrimSpace(req.JoinToken)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if req.JoinToken == "" {
			req.JoinToken = generateJoinToken()
		}

		team, err := store.CreateTeam(r.Context(), req.Name, req.JoinToken)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "team name or join token already in use")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, teamItem(team))
	}
}

func teamItem(t arena.Team) TeamItem {
	return TeamItem{
		ID:        t.ID,
		Name:      t.Name,
		JoinToken: t.JoinToken,
		CreatedAt: arena.FormatUTC(t.CreatedAt),
	}
}

func handleListTeams(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := store.ListTeams(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		items := make([]TeamItem, 0, len(teams))
		for _, t := range teams {
			items = append(items, teamItem(t))
		}
		writeJSON(w, http.StatusOK, items)
	}
}
