package http

import (
	"net/http"
	"strings"

	"github.com/redmonkez12/work4u/internal/auth"
)

// SecurityHeaders adds security-related headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		switch {
		case strings.HasPrefix(r.URL.Path, "/swagger/"):
			// Swagger UI needs scripts, styles, and images to render
			w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		case isAPIPath(r.URL.Path):
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
		default:
			// Frontend pages load their bundle and Google profile images
			w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'")
		}

		next.ServeHTTP(w, r)
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/auth/") || path == "/health"
}

// guestOnlyPaths are pages a signed-in user is sent away from.
var guestOnlyPaths = map[string]bool{
	"/signin": true,
	"/signup": true,
}

// RedirectAuthenticated sends requests for the sign-in and sign-up pages to
// / while the work4u_auth flag cookie is set. The query string is kept.
func RedirectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if guestOnlyPaths[r.URL.Path] && auth.HasAuthFlag(r) {
			target := "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
