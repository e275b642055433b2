package middleware

import (
	"net/http"
	"time"

	"github.com/fernwood/hearth/internal/auth"
	"github.com/fernwood/hearth/internal/store"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "hearth_session"

// RequireAuth validates the session cookie, resolves the member's current
// role, and populates AuthContext. API callers get a plain 401.
func RequireAuth(sessions *store.SessionStore, members *store.MemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value, time.Now().UTC())
			if err != nil || sess == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			member, err := members.Get(sess.FamilyID, sess.MemberUID)
			if err != nil || member == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ac := auth.AuthContext{
				UID:      member.UID,
				FamilyID: member.FamilyID,
				Role:     member.Role,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
