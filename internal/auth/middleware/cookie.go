package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultCookieName is the session cookie browsers carry.
	DefaultCookieName = "authToken"
	// DefaultTokenTTL is the session lifetime; the cookie max-age, the token
	// lifetime and the revocation TTL all derive from one value.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// SetSessionCookie writes the session cookie. HttpOnly keeps scripts away
// from the token, Secure restricts it to TLS, SameSite=Strict keeps
// cross-site requests from carrying it.
func SetSessionCookie(w http.ResponseWriter, name, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie at logout.
func ClearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
