// Package analytics builds the usage events and login metadata reported to
// the backend.
package analytics

import (
	"context"
	"net/http"
)

// ClientContext describes the page and device an operation was started from.
type ClientContext struct {
	PageURL   string
	PagePath  string
	PageTitle string
	Referrer  string
	UserAgent string
}

type clientContextKey struct{}

func WithClientContext(ctx context.Context, cc ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, cc)
}

// ClientContextFrom returns the ClientContext carried by ctx, or the zero value.
func ClientContextFrom(ctx context.Context) ClientContext {
	cc, _ := ctx.Value(clientContextKey{}).(ClientContext)
	return cc
}

// FromRequest derives a ClientContext from a browser request. The page is
// taken from the X-Page-Url header sent by the frontend, falling back to the
// Referer.
func FromRequest(r *http.Request) ClientContext {
	page := r.Header.Get("X-Page-Url")
	if page == "" {
		page = r.Referer()
	}

	cc := ClientContext{
		PageURL:   page,
		PageTitle: r.Header.Get("X-Page-Title"),
		Referrer:  r.Header.Get("X-Page-Referrer"),
		UserAgent: r.UserAgent(),
	}
	cc.PagePath = pathOf(page)
	return cc
}

// Middleware stores the request's ClientContext for the handlers below it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithClientContext(r.Context(), FromRequest(r))))
	})
}
