package server

import (
	"context"
	"net/http"
)

type ctxKey int

const ctxKeyStaff ctxKey = iota

// staffAuthMiddleware requires a staff session with one of the given roles.
// With no roles listed, any staff session passes.
func staffAuthMiddleware(store Store, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := staffFromRequest(r, store)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if len(roles) > 0 && !hasRole(sess.Role, roles) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyStaff, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasRole(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

func staffFrom(r *http.Request) staffSession {
	return r.Context().Value(ctxKeyStaff).(staffSession)
}
