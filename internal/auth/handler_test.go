package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/work4u/internal/httputil"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
	"github.com/redmonkez12/work4u/internal/user"
)

type fakeFlow struct {
	completeErr error
	flowData    string
}

func (f *fakeFlow) Begin(state string) (string, string, error) {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state), "verifier-" + state, nil
}

func (f *fakeFlow) Complete(_ context.Context, flowData string, _ url.Values) (identity.Credential, error) {
	f.flowData = flowData
	if f.completeErr != nil {
		return identity.Credential{}, f.completeErr
	}
	return identity.Credential{ProviderID: identity.GoogleProviderID, IDToken: "google-id-token"}, nil
}

type harness struct {
	router   http.Handler
	provider *fakeProvider
	profiles *fakeProfiles
	flow     *fakeFlow
	clients  *Clients
	cookies  map[string]*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tickets := newTestTickets(t)
	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)

	h := &harness{
		provider: &fakeProvider{},
		profiles: newFakeProfiles(),
		flow:     &fakeFlow{},
		cookies:  make(map[string]*http.Cookie),
	}
	h.clients = NewClients(ClientDeps{
		Provider: h.provider,
		Profiles: h.profiles,
		Sealer:   tickets,
		Logger:   logging.NewNopLogger(),
	}, state.NewMemoryFactory())
	t.Cleanup(h.clients.Close)

	m := NewMiddleware(h.clients, tickets, catalog, false)
	handler := NewHandler(h.flow, catalog)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logging.NewContext(r.Context(), logging.NewNopLogger())))
		})
	})
	r.Use(i18n.Middleware)
	r.Group(func(r chi.Router) {
		r.Use(m.ResolveClient)
		r.Post("/auth/signup", handler.SignUp)
		r.Post("/auth/signin", handler.SignIn)
		r.Post("/auth/signout", handler.SignOut)
		r.Post("/auth/forgot-password", handler.ForgotPassword)
		r.Get("/auth/google/signin", handler.GoogleSignIn)
		r.Get("/auth/google/signup", handler.GoogleSignUp)
		r.Get("/auth/google/callback", handler.GoogleCallback)
		r.Get("/api/session", handler.Session)

		r.Group(func(r chi.Router) {
			r.Use(m.RequireAuth)
			r.Get("/api/token", handler.Token)
			r.Patch("/api/profile", handler.UpdateProfile)
			r.Delete("/api/profile", handler.DeleteProfile)
		})
	})
	h.router = r
	return h
}

// do sends a request carrying the cookies set by earlier responses.
func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range h.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return w
}

func (h *harness) signedIn() bool {
	c, ok := h.cookies[AuthCookieName]
	return ok && c.Value == "1"
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandlerSignInFlow(t *testing.T) {
	h := newHarness(t)
	h.profiles.profiles["uid-bob"] = &user.ApiUser{DisplayName: "Bob", Status: "ACTIVE", UserType: "PERSONAL"}

	w := h.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, h.cookies, SessionCookieName)
	assert.False(t, h.signedIn())

	var session SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&session))
	assert.False(t, session.Authenticated)
	assert.False(t, session.Loading)
	assert.Equal(t, 1, h.clients.Len())

	w = h.do(http.MethodPost, "/auth/signin", `{"email":" bob@example.com ","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.signedIn())

	var resp UserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "uid-bob", resp.User.ID)
	assert.Equal(t, "Bob", *resp.User.DisplayName)

	w = h.do(http.MethodGet, "/api/session", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&session))
	assert.True(t, session.Authenticated)
	assert.Equal(t, "uid-bob", session.User.ID)
	assert.Equal(t, 1, h.clients.Len())

	w = h.do(http.MethodGet, "/api/token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var token TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&token))
	assert.Equal(t, "tok-uid-bob", token.Token)

	w = h.do(http.MethodPost, "/auth/signout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, h.signedIn())
	assert.Equal(t, []string{"uid-bob|tok-uid-bob"}, h.profiles.cleared)

	w = h.do(http.MethodGet, "/api/token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, httputil.CodeNoSession, decodeError(t, w).Code)
}

func TestHandlerSignOutWithoutFlagCookie(t *testing.T) {
	h := newHarness(t)
	h.profiles.profiles["uid-bob"] = &user.ApiUser{DisplayName: "Bob", Status: "ACTIVE", UserType: "PERSONAL"}

	w := h.do(http.MethodPost, "/auth/signin", `{"email":"bob@example.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, h.signedIn())

	delete(h.cookies, AuthCookieName)
	w = h.do(http.MethodPost, "/auth/signout", "")
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		if c.Name == AuthCookieName {
			assert.NotEqual(t, "1", c.Value)
		}
	}
	assert.False(t, h.signedIn())
}

func TestHandlerSignInErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		h := newHarness(t)

		w := h.do(http.MethodPost, "/auth/signin", `{"email":"bob@example.com","password":"weak"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, httputil.CodePasswordPolicy, resp.Code)
		assert.Equal(t, FieldPassword, resp.Field)
	})

	t.Run("wrong password is localized", func(t *testing.T) {
		h := newHarness(t)
		h.provider.signInErr = &identity.ProviderError{Code: "auth/wrong-password", Kind: identity.ErrWrongPassword}

		w := h.do(http.MethodPost, "/auth/signin?lang=fr", `{"email":"bob@example.com","password":"Secret1!"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, httputil.CodeWrongPassword, resp.Code)
		assert.Equal(t, FieldPassword, resp.Field)
		assert.Equal(t, "Mot de passe incorrect", resp.Error)
		assert.False(t, h.signedIn())
	})

	t.Run("invalid body", func(t *testing.T) {
		h := newHarness(t)

		w := h.do(http.MethodPost, "/auth/signin", `{"email":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, httputil.CodeInvalidRequestBody, decodeError(t, w).Code)
	})
}

func TestHandlerSignUp(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/signup", `{"email":"ana@example.com","password":"Secret1!","displayName":"Ana","workerTypes":["WORKER"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, h.signedIn())

	var resp UserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, user.StatusPendingVerification, resp.User.Status)
	assert.Equal(t, []user.WorkerType{user.WorkerTypeWorker}, resp.User.WorkerTypes)

	w = h.do(http.MethodPost, "/auth/signup", `{"email":"ana@example.com","password":"Secret1!","displayName":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, FieldWorkerTypes, decodeError(t, w).Field)
}

func TestHandlerForgotPasswordNeverLeaks(t *testing.T) {
	h := newHarness(t)
	h.provider.resetErr = &identity.ProviderError{Code: "EMAIL_NOT_FOUND", Kind: identity.ErrUserNotFound}

	w := h.do(http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "If an account exists for this email, a reset link has been sent.", resp.Message)
}

func startGoogle(t *testing.T, h *harness, target string) string {
	t.Helper()
	w := h.do(http.MethodGet, target, "")
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestHandlerGoogleSignIn(t *testing.T) {
	t.Run("existing profile", func(t *testing.T) {
		h := newHarness(t)
		h.profiles.profiles["google-uid"] = &user.ApiUser{Status: "ACTIVE"}

		state := startGoogle(t, h, "/auth/google/signin")
		w := h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+state, "")

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, "verifier-"+state, h.flow.flowData)
		assert.True(t, h.signedIn())
	})

	t.Run("registration required", func(t *testing.T) {
		h := newHarness(t)

		state := startGoogle(t, h, "/auth/google/signin")
		w := h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+state, "")

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/signup?error=REGISTRATION_REQUIRED", w.Header().Get("Location"))
		assert.False(t, h.signedIn())
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t)

		startGoogle(t, h, "/auth/google/signin")
		w := h.do(http.MethodGet, "/auth/google/callback?code=abc&state=forged", "")

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/signin?error=OAUTH_STATE_MISMATCH", w.Header().Get("Location"))
	})

	t.Run("consent closed", func(t *testing.T) {
		h := newHarness(t)
		h.flow.completeErr = identity.ErrPopupClosed

		state := startGoogle(t, h, "/auth/google/signup?workerTypes=worker")
		w := h.do(http.MethodGet, "/auth/google/callback?error=access_denied&state="+state, "")

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/signup?error="+url.QueryEscape(httputil.CodePopupClosed), w.Header().Get("Location"))
	})
}

func TestHandlerGoogleSignUp(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/auth/google/signup", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, FieldWorkerTypes, decodeError(t, w).Field)

	state := startGoogle(t, h, "/auth/google/signup?userType=enterprise&workerTypes=WORKER,REQUESTOR")
	w = h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+state, "")

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	require.Len(t, h.profiles.created, 1)
	assert.Equal(t, user.UserTypeEnterprise, h.profiles.created[0].UserType)
	require.Len(t, h.profiles.updates, 1)
	assert.Equal(t, []user.WorkerType{user.WorkerTypeWorker, user.WorkerTypeRequestor}, h.profiles.updates[0].WorkerTypes)
}

func TestHandlerProfile(t *testing.T) {
	h := newHarness(t)
	h.profiles.profiles["uid-bob"] = &user.ApiUser{DisplayName: "Bob"}

	w := h.do(http.MethodPatch, "/api/profile", `{"displayName":"Robert"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/auth/signin", `{"email":"bob@example.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPatch, "/api/profile", `{"workerTypes":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPatch, "/api/profile", `{"displayName":"Robert"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Robert", *resp.User.DisplayName)

	w = h.do(http.MethodDelete, "/api/profile", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, h.signedIn())
	assert.Equal(t, []string{"uid-bob"}, h.profiles.deleted)
}

func TestHandlerDeleteProfileFailure(t *testing.T) {
	h := newHarness(t)
	h.profiles.profiles["uid-bob"] = &user.ApiUser{}

	w := h.do(http.MethodPost, "/auth/signin", `{"email":"bob@example.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, w.Code)

	h.profiles.deleteErr = context.DeadlineExceeded
	w = h.do(http.MethodDelete, "/api/profile", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, h.signedIn())
}

func TestResolveClientReplacesInvalidTicket(t *testing.T) {
	h := newHarness(t)
	h.cookies[SessionCookieName] = &http.Cookie{Name: SessionCookieName, Value: "v4.local.garbage"}

	w := h.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "v4.local.garbage", h.cookies[SessionCookieName].Value)
}

func TestResolveClientClearsStaleFlag(t *testing.T) {
	h := newHarness(t)
	h.cookies[AuthCookieName] = &http.Cookie{Name: AuthCookieName, Value: "1"}

	h.do(http.MethodGet, "/api/session", "")
	assert.False(t, h.signedIn())
}

func TestHandlerGoogleDisabled(t *testing.T) {
	h := newHarness(t)
	catalog, err := i18n.LoadCatalog()
	require.NoError(t, err)
	handler := NewHandler(nil, catalog)

	ctx := logging.NewContext(context.Background(), logging.NewNopLogger())
	ctx = WithClient(ctx, h.clients.New(ctx))
	r := httptest.NewRequest(http.MethodGet, "/auth/google/signin", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	handler.GoogleSignIn(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, httputil.CodeNotFound, decodeError(t, w).Code)
}
