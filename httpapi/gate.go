package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/doorward/doorward/internal/logutil"
	"github.com/doorward/doorward/session"
)

const (
	loginPath     = "/auth/login"
	dashboardPath = "/dashboard"

	// apiPrefix requests are never gated, the handlers decide for
	// themselves.
	apiPrefix = "/api/auth/"
)

type (
	// Gate fronts page requests and decides, from the session cookie
	// alone, whether they may proceed. It never consults the user store:
	// a deleted account keeps passing until its token expires, which is
	// an accepted trade for a storage-free check.
	Gate struct {
		issuer       *session.Issuer
		cache        *bigcache.BigCache
		protected    []string
		authPages    []string
		secureCookie bool
		now          func() time.Time
	}

	ctxKey byte
)

const userIDKey = ctxKey(1)

// UserID returns the authenticated user id the gate stored in the request
// context, or zero for ungated/anonymous requests.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func NewGate(issuer *session.Issuer, secureCookie bool) *Gate {
	// verified claims are memoized for a minute so page navigation does
	// not redo the signature check on every request
	cache, _ := bigcache.New(context.Background(), bigcache.DefaultConfig(time.Minute))
	return &Gate{
		issuer:       issuer,
		cache:        cache,
		protected:    []string{dashboardPath},
		authPages:    []string{loginPath, "/auth/register"},
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

func (g *Gate) isAuthPage(path string) bool {
	for _, p := range g.authPages {
		if path == p {
			return true
		}
	}
	return false
}

func (g *Gate) isProtected(path string) bool {
	for _, p := range g.protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// decode verifies the token, going through the memo cache first. Expiry is
// always re-checked against the wall clock, only the signature work is
// skipped on a cache hit.
func (g *Gate) decode(ctx context.Context, token string) *session.Claims {
	if buf, err := g.cache.Get(token); err == nil {
		claims := &session.Claims{}
		if json.Unmarshal(buf, claims) == nil {
			if claims.ExpiresAt != nil && claims.ExpiresAt.After(g.now()) {
				return claims
			}
			return nil
		}
	}
	claims, status := g.issuer.Verify(token)
	if status != session.Valid {
		logger := logutil.GetOrDefault(ctx)
		logger.Debug().Stringer("token.status", status).Msg("Rejecting session token")
		return nil
	}
	if buf, err := json.Marshal(claims); err == nil {
		g.cache.Set(token, buf)
	}
	return claims
}

// Protect wraps next with the gate decision table.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		authPage, protected := g.isAuthPage(path), g.isProtected(path)
		if !authPage && !protected {
			next.ServeHTTP(w, r)
			return
		}
		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			if protected {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		claims := g.decode(r.Context(), cookie.Value)
		switch {
		case authPage && claims != nil:
			http.Redirect(w, r, dashboardPath, http.StatusFound)
		case authPage:
			// stale token on a login page is harmless, let the user
			// log in again
			next.ServeHTTP(w, r)
		case claims != nil:
			id, err := claims.UserID()
			if err != nil {
				g.evict(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
		default:
			g.evict(w, r)
		}
	})
}

func (g *Gate) evict(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.secureCookie,
	})
	http.Redirect(w, r, loginPath, http.StatusFound)
}
