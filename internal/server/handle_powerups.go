package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/questrun/arena/internal/arena"
)

// PowerUpRequest is the request body for POST /api/game/powerups.
type PowerUpRequest struct {
	Type string `json:"type"`
}

// PowerUpItem is the wire form of a used power-up.
type PowerUpItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	PhaseUsed int    `json:"phaseUsed"`
	UsedAt    string `json:"usedAt"`
}

func handleActivatePowerUp(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := teamFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req PowerUpRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Type = strings.TrimSpace(req.Type)
		if req.Type == "" {
			writeError(w, http.StatusBadRequest, "type is required")
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

		pu := arena.PowerUp{
			ID:        newID(),
			TeamID:    sess.TeamID,
			Type:      req.Type,
			PhaseUsed: cfg.CurrentPhase,
			Status:    "used",
			UsedAt:    time.Now().UTC(),
		}
		// The unique budget index decides; no read-check-then-insert here.
		err = store.InsertPowerUp(r.Context(), pu)
		if errors.Is(err, ErrConflict) {
			writeError(w, http.StatusConflict, "power-up already used this phase")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, PowerUpItem{
			ID:        pu.ID,
			Type:      pu.Type,
			PhaseUsed: pu.PhaseUsed,
			UsedAt:    arena.FormatUTC(pu.UsedAt),
		})
	}
}

func handleListPowerUps(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := teamFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		powerUps, err := store.ListPowerUps(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		items := make([]PowerUpItem, 0, len(powerUps))
		for _, pu := range powerUps {
			items = append(items, PowerUpItem{
				ID:        pu.ID,
				Type:      pu.Type,
				PhaseUsed: pu.PhaseUsed,
				UsedAt:    arena.FormatUTC(pu.UsedAt),
			})
		}
		writeJSON(w, http.StatusOK, items)
	}
}
