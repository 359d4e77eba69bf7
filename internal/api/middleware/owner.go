package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/taskpriority/internal/api"
)

type contextKey string

const OwnerIDKey contextKey = "owner_id"

// OwnerHeader carries the account whose tasks a request operates on. The caller
// (an authenticating gateway) is trusted to set it.
const OwnerHeader = "X-Owner-ID"

const maxOwnerIDLength = 128

// RequireOwner rejects requests without an owner and stores the owner in the context.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if ownerID == "" {
			api.Error(w, http.StatusUnauthorized, "missing owner")
			return
		}
		if len(ownerID) > maxOwnerIDLength {
			api.Error(w, http.StatusBadRequest, "owner id too long")
			return
		}

		ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetOwnerID(ctx context.Context) string {
	ownerID, _ := ctx.Value(OwnerIDKey).(string)
	return ownerID
}

// WithOwnerID returns a copy of ctx carrying ownerID.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, OwnerIDKey, ownerID)
}
