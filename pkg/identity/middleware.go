package identity

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	SessionHeader = "X-Session-ID"
	UserHeader    = "X-User-ID"
	maxIDLength   = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_.:@-]+$`)

// FromRequest reads the identity headers. Malformed values are ignored.
func FromRequest(r *http.Request) Identity {
	id := Identity{
		SessionID: r.Header.Get(SessionHeader),
		UserID:    r.Header.Get(UserHeader),
	}
	if !isValidID(id.SessionID) {
		id.SessionID = ""
	}
	if !isValidID(id.UserID) {
		id.UserID = ""
	}
	return id
}

// Middleware puts the request identity in the context. A request without a
// session ID gets a new one, echoed back in the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromRequest(r)
		if id.SessionID == "" {
			id.SessionID = uuid.NewString()
		}
		w.Header().Set(SessionHeader, id.SessionID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

func isValidID(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
