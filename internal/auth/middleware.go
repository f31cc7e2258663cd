package auth

import (
	"context"
	"net/http"

	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/logging"
)

type clientContextKey struct{}

// WithClient returns a copy of ctx carrying c.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFromContext returns the client stored by ResolveClient.
func ClientFromContext(ctx context.Context) (*Client, bool) {
	c, ok := ctx.Value(clientContextKey{}).(*Client)
	return c, ok && c != nil
}

// UserIDFromRequest returns the id of the signed-in user of the request's
// client.
func UserIDFromRequest(r *http.Request) (string, bool) {
	c, ok := ClientFromContext(r.Context())
	if !ok {
		return "", false
	}
	u := c.Store.Get()
	if u == nil {
		return "", false
	}
	return u.ID, true
}

// Middleware resolves the client instance of each browser from its session
// ticket cookie.
type Middleware struct {
	clients *Clients
	tickets *TicketService
	catalog *i18n.Catalog
	secure  bool
}

func NewMiddleware(clients *Clients, tickets *TicketService, catalog *i18n.Catalog, secure bool) *Middleware {
	return &Middleware{clients: clients, tickets: tickets, catalog: catalog, secure: secure}
}

// ResolveClient puts the request's client in the context, creating one and
// issuing a ticket when the request has no valid ticket. The work4u_auth
// flag cookie is brought in line with the client.
func (m *Middleware) ResolveClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		var c *Client
		if ticket, err := GetSessionTicketFromCookie(r); err == nil && ticket != "" {
			id, err := m.tickets.Verify(ticket)
			if err != nil {
				logger.Debug("discarding session ticket", "error", err.Error())
			} else {
				c = m.clients.Get(r.Context(), id)
			}
		}

		if c == nil {
			c = m.clients.New(r.Context())
			ticket, err := m.tickets.Issue(c.ID)
			if err != nil {
				logger.Error("failed to issue session ticket", "error", err.Error())
				httputil.RespondErrorWithCode(w, "failed to start session", httputil.CodeInternalError, http.StatusInternalServerError)
				return
			}
			SetSessionCookie(w, ticket, m.tickets.TTL(), m.secure)
			logger.Debug("client created", "client_id", c.ID)
		}

		SyncAuthFlagCookie(w, r, c.Flag.Authenticated())

		ctx := WithClient(r.Context(), c)
		ctx = logging.NewContext(ctx, logger.WithFields(map[string]any{"client_id": c.ID}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests whose client has no signed-in user.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromRequest(r); !ok {
			msg := m.catalog.Translator(i18n.TagFrom(r.Context())).T("auth.session.required")
			httputil.RespondErrorWithCode(w, msg, httputil.CodeNoSession, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
