package server

import (
	"net/http"
)

// resetConfirmation is the phrase an admin must type to wipe the event.
const resetConfirmation = "RESET EVERYTHING"

// ResetRequest is the request body for POST /api/admin/reset.
type ResetRequest struct {
	Confirm string `json:"confirm"`
}

func handleReset(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Confirm != resetConfirmation {
			writeError(w, http.StatusBadRequest, "confirmation phrase does not match")
			return
		}

		if err := store.ResetAll(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(TopicEvent, Event{Type: "system_reset"})
		broker.Publish(TopicRanking, Event{Type: "system_reset"})

		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}
