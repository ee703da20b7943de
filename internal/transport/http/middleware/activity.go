package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Toucher refreshes a user's presence.
type Toucher interface {
	Touch(ctx context.Context, userID uuid.UUID) error
}

// Activity marks the authenticated user as active on every request. It must
// run inside Auth. A failed update is logged and the request continues.
func Activity(t Toucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if err := t.Touch(r.Context(), userID); err != nil {
				log.Warn().Err(err).Stringer("user_id", userID).Msg("presence update failed")
			}
			next.ServeHTTP(w, r)
		})
	}
}
