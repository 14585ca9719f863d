package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// UserHeader carries the acting user's id, set by the auth gateway.
const UserHeader = "X-User-ID"

type ctxKey int

const userKey ctxKey = iota

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, entity.UserRef{ID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (entity.UserRef, bool) {
	u, ok := ctx.Value(userKey).(entity.UserRef)
	return u, ok
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   code,
		"message": message,
	})
}
