package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hanko-field/storefront/internal/platform/requestctx"
)

const (
	defaultSessionHeader = "X-Session-ID"
	defaultSessionCookie = "sf_session"
	defaultSessionTTL    = 30 * 24 * time.Hour
	minSessionIDLength   = 8
	maxSessionIDLength   = 128
)

// SessionOptions configure how the anonymous shopper session is carried.
type SessionOptions struct {
	Header       string
	CookieName   string
	CookieTTL    time.Duration
	CookieSecure bool
	NewID        func() string
	Clock        func() time.Time
}

// SessionMiddleware resolves the session id from the header, then the cookie, minting a new one
// when neither carries a usable id. The id is echoed in the response header and refreshed in the
// cookie.
func SessionMiddleware(opts SessionOptions) func(http.Handler) http.Handler {
	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = defaultSessionHeader
	}
	cookieName := strings.TrimSpace(opts.CookieName)
	if cookieName == "" {
		cookieName = defaultSessionCookie
	}
	ttl := opts.CookieTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := requestctx.Session{ID: strings.TrimSpace(r.Header.Get(header))}
			var cookieValue string
			if c, err := r.Cookie(cookieName); err == nil {
				cookieValue = strings.TrimSpace(c.Value)
			}
			if !validSessionID(session.ID) {
				session.ID = cookieValue
			}
			if !validSessionID(session.ID) {
				session = requestctx.Session{ID: newID(), Issued: true}
			}

			w.Header().Set(header, session.ID)
			if session.ID != cookieValue || session.Issued {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    session.ID,
					Path:     "/",
					Expires:  clock().Add(ttl).UTC(),
					MaxAge:   int(ttl / time.Second),
					HttpOnly: true,
					Secure:   opts.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithSession(r.Context(), session)))
		})
	}
}

func validSessionID(id string) bool {
	if len(id) < minSessionIDLength || len(id) > maxSessionIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
