package server

import (
	"errors"
	"net/http"
)

var errNoStaffSession = errors.New("no valid staff session")

const staffCookieName = "staff_session"

const (
	roleAdmin     = "admin"
	roleEvaluator = "evaluator"
)

// staffFromRequest reads the staff_session cookie and looks up the session.
func staffFromRequest(r *http.Request, store Store) (staffSession, error) {
	cookie, err := r.Cookie(staffCookieName)
	if err != nil || cookie.Value == "" {
		return staffSession{}, errNoStaffSession
	}
	return store.StaffFromSession(r.Context(), cookie.Value)
}
