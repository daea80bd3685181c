package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// teamFromRequest resolves the Bearer token to a team session.
func teamFromRequest(r *http.Request, store Store) (teamSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return teamSession{}, errNoSession
	}
	return store.TeamFromSession(r.Context(), token)
}
