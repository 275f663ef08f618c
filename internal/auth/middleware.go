package auth

import (
	"net/http"
	"net/url"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
)

type Middleware struct {
	tokens      *TokenManager
	revocations RevocationStore
	cookie      CookieConfig
	users       user.UserRepository
}

func NewMiddleware(tokens *TokenManager, revocations RevocationStore, cookie CookieConfig, users user.UserRepository) *Middleware {
	return &Middleware{
		tokens:      tokens,
		revocations: revocations,
		cookie:      cookie,
		users:       users,
	}
}

// SessionMiddleware resolves the session cookie into an Identity. Requests
// with a missing, invalid, expired or revoked token continue anonymously.
func (m *Middleware) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookie.name())
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		log := config.WithContext(ctx)

		claims, err := m.tokens.ValidateJWT(cookie.Value)
		if err != nil {
			log.WithError(err).Debug("Discarding invalid session token")
			m.cookie.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		identity, err := claims.Identity()
		if err != nil {
			log.WithError(err).Warn("Session token carries an invalid identity")
			m.cookie.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		revoked, err := m.revocations.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			log.WithError(err).Error("Failed to check session revocation")
			revoked = true
		}
		if revoked {
			m.cookie.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx = WithIdentity(ctx, identity)
		ctx = config.ContextWithLogger(ctx, log.WithField("user_id", identity.UserID.String()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous callers to the login page.
func (m *Middleware) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole silently redirects callers without role to redirectTo. The
// role is read from the stored user, so promotions and demotions apply to
// sessions issued before them.
func (m *Middleware) RequireRole(role, redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, err := RequireIdentity(ctx)
			if err != nil {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			u, err := m.users.GetByID(ctx, identity.UserID)
			if err != nil {
				config.WithContext(ctx).WithError(err).Error("Failed to load user for role check")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if u == nil {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}

			identity.Role = RoleOf(u)
			if !HasRole(identity, role) {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}
