package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func handleStartQuest(machine *Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questID := chi.URLParam(r, "questID")

		quest, err := machine.StartQuest(r.Context(), questID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, questItem(quest))
	}
}

func handleAdvanceQuest(machine *Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questID := chi.URLParam(r, "questID")

		res, err := machine.AdvanceQuest(r.Context(), questID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		// res.Closed == false means another caller advanced first; still 200.
		writeJSON(w, http.StatusOK, res)
	}
}
