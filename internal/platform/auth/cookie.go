package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "token"

// SessionCookie writes and clears the session cookie. Secure is only set in
// production so local development over plain HTTP still works.
type SessionCookie struct {
	Secure bool
	MaxAge time.Duration
}

// NewSessionCookie returns cookie settings with the default 30 day lifetime.
func NewSessionCookie(secure bool) SessionCookie {
	return SessionCookie{Secure: secure, MaxAge: DefaultTokenTTL}
}

// Attach sets the session cookie on the response.
func (s SessionCookie) Attach(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.MaxAge),
		MaxAge:   int(s.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the session cookie immediately.
func (s SessionCookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Extract reads the session token from the request cookie.
func Extract(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
