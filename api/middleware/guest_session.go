package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bakery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

type guestSessions interface {
	Issue() (string, error)
	SessionKey(token string) (string, error)
}

// GuestSessionOptions configure GuestSession.
type GuestSessionOptions struct {
	Header string
	// Issue mints a token for anonymous requests that arrive without one.
	Issue bool
}

// GuestSession resolves the guest token header into a session key. Tokens that
// fail verification are dropped rather than adopted. It must run after
// OptionalAuth: a signed-in request keeps its token only so a merge can
// find the guest cart, and never gets a fresh one.
func GuestSession(sessions guestSessions, opts GuestSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	header := opts.Header
	if header == "" {
		header = "X-Guest-Session"
	}
	return func(next http.Handler) http.Handler {
		if sessions == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if token := strings.TrimSpace(r.Header.Get(header)); token != "" {
				key, err := sessions.SessionKey(token)
				if err == nil {
					if logg != nil {
						ctx = logg.WithSessionID(ctx, key)
					}
					next.ServeHTTP(w, r.WithContext(WithGuestSession(ctx, key)))
					return
				}
				if logg != nil {
					logg.Warn(ctx, "guest.session.rejected")
				}
			}

			if !opts.Issue || UserIDFromContext(ctx) != "" {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, err := sessions.Issue()
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue guest session"))
				return
			}
			key, err := sessions.SessionKey(token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive guest session"))
				return
			}
			w.Header().Set(header, token)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, key)
			}
			next.ServeHTTP(w, r.WithContext(WithGuestSession(ctx, key)))
		})
	}
}
