package identity

import (
	"net/http"
	"time"
)

const (
	CookieName   = "fast-task-tracker-session"
	CookieMaxAge = 30 * 24 * time.Hour
)

// Cookies is the session cookie policy used for both users and guests.
type Cookies struct {
	Name   string
	MaxAge time.Duration
}

func DefaultCookies() Cookies {
	return Cookies{Name: CookieName, MaxAge: CookieMaxAge}
}

func (c Cookies) New(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expire returns a cookie that makes the client drop the session.
func (c Cookies) Expire() *http.Cookie {
	ck := c.New("")
	ck.MaxAge = -1
	ck.Expires = time.Unix(0, 0)
	return ck
}

// Value returns the session cookie value, or "" when absent.
func (c Cookies) Value(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}
