package middleware

import (
	"context"
	"net/http"

	"github.com/davortega/attar/internal/cookie"
	"github.com/davortega/attar/internal/domain"
)

const (
	// UserIDHeader is set by the upstream auth proxy for authenticated
	// requests. Authentication itself lives outside this service.
	UserIDHeader = "X-User-ID"

	// OwnerContextKey is the context key for the resolved cart owner
	OwnerContextKey contextKey = "owner"
)

// ResolveOwner resolves the cart owner for the request: the authenticated
// user ID when present, otherwise the guest token cookie. A logged-in user's
// identity always wins over a lingering guest cookie. Requests with neither
// pass through with no owner in context; handlers that mutate the cart issue
// a guest token lazily.
func ResolveOwner(guestCookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var owner domain.Owner

			if userID := r.Header.Get(UserIDHeader); userID != "" {
				owner = domain.UserOwner(userID)
			} else if guestID := cookie.Get(r, guestCookieName); guestID != "" {
				owner = domain.GuestOwner(guestID)
			}

			if owner.IsZero() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), OwnerContextKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwner retrieves the resolved cart owner from the context.
func GetOwner(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(OwnerContextKey).(domain.Owner)
	return owner, ok
}
