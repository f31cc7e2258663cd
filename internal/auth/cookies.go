package auth

import (
	"net/http"
	"time"
)

const (
	// AuthCookieName is the client readable flag set while signed in.
	AuthCookieName = "work4u_auth"
	// SessionCookieName holds the session ticket of the browser's client.
	SessionCookieName = "work4u_session"
)

// SetAuthFlagCookie sets work4u_auth=1 for the whole site.
func SetAuthFlagCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "1",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthFlagCookie expires the work4u_auth flag.
func ClearAuthFlagCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

// HasAuthFlag reports whether the request carries work4u_auth=1.
func HasAuthFlag(r *http.Request) bool {
	cookie, err := r.Cookie(AuthCookieName)
	return err == nil && cookie.Value == "1"
}

// SyncAuthFlagCookie sets or clears the flag when the request's cookie
// disagrees with authenticated. A flag already written to w by an earlier
// sync is dropped first so the response carries only the final state.
func SyncAuthFlagCookie(w http.ResponseWriter, r *http.Request, authenticated bool) {
	dropAuthFlagCookie(w.Header())

	has := HasAuthFlag(r)
	switch {
	case authenticated && !has:
		SetAuthFlagCookie(w)
	case !authenticated && has:
		ClearAuthFlagCookie(w)
	}
}

func dropAuthFlagCookie(h http.Header) {
	lines := h.Values("Set-Cookie")
	if len(lines) == 0 {
		return
	}

	kept := lines[:0:0]
	for _, line := range lines {
		if c, err := http.ParseSetCookie(line); err == nil && c.Name == AuthCookieName {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
		return
	}
	h["Set-Cookie"] = kept
}

// SetSessionCookie stores the session ticket in an HttpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, ticket string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    ticket,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session ticket cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionTicketFromCookie returns the session ticket of the request.
func GetSessionTicketFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
