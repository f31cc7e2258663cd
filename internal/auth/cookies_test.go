package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/work4u/internal/state"
)

func TestSyncAuthFlagCookie(t *testing.T) {
	tests := []struct {
		name          string
		hasFlag       bool
		authenticated bool
		wantCookie    bool
		wantMaxAge    int
	}{
		{"sets missing flag", false, true, true, 0},
		{"clears stale flag", true, false, true, -1},
		{"keeps matching flag", true, true, false, 0},
		{"nothing to clear", false, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.hasFlag {
				r.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "1"})
			}
			w := httptest.NewRecorder()

			SyncAuthFlagCookie(w, r, tt.authenticated)

			cookies := w.Result().Cookies()
			if !tt.wantCookie {
				assert.Empty(t, cookies)
				return
			}
			require.Len(t, cookies, 1)
			assert.Equal(t, AuthCookieName, cookies[0].Name)
			assert.Equal(t, "/", cookies[0].Path)
			assert.Equal(t, tt.wantMaxAge, cookies[0].MaxAge)
			assert.False(t, cookies[0].HttpOnly)
		})
	}
}

func TestSyncAuthFlagCookieReplacesEarlierFlag(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	w := httptest.NewRecorder()
	SetSessionCookie(w, "ticket", time.Hour, false)

	SyncAuthFlagCookie(w, r, true)
	SyncAuthFlagCookie(w, r, false)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)

	w = httptest.NewRecorder()
	SyncAuthFlagCookie(w, r, true)
	SyncAuthFlagCookie(w, r, true)

	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.Equal(t, "1", cookies[0].Value)
}

func TestSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "ticket", time.Hour, true)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	ticket, err := GetSessionTicketFromCookie(r)
	require.NoError(t, err)
	assert.Equal(t, "ticket", ticket)
}

func TestTakePendingOAuth(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("matching state is consumed", func(t *testing.T) {
		storage := state.NewMemoryStorage()
		require.NoError(t, savePendingOAuth(ctx, storage, PendingOAuth{State: "abc", Intent: IntentSignUp, StartedAt: now}))

		p, err := takePendingOAuth(ctx, storage, "abc", now)
		require.NoError(t, err)
		assert.Equal(t, IntentSignUp, p.Intent)

		_, err = takePendingOAuth(ctx, storage, "abc", now)
		assert.ErrorIs(t, err, ErrOAuthStateMismatch)
	})

	t.Run("mismatch keeps the flow", func(t *testing.T) {
		storage := state.NewMemoryStorage()
		require.NoError(t, savePendingOAuth(ctx, storage, PendingOAuth{State: "abc", StartedAt: now}))

		_, err := takePendingOAuth(ctx, storage, "other", now)
		assert.ErrorIs(t, err, ErrOAuthStateMismatch)

		_, ok, err := storage.Get(ctx, PendingOAuthKey)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired", func(t *testing.T) {
		storage := state.NewMemoryStorage()
		require.NoError(t, savePendingOAuth(ctx, storage, PendingOAuth{State: "abc", StartedAt: now.Add(-time.Hour)}))

		_, err := takePendingOAuth(ctx, storage, "abc", now)
		assert.ErrorIs(t, err, ErrOAuthStateMismatch)
	})

	t.Run("none pending", func(t *testing.T) {
		_, err := takePendingOAuth(ctx, state.NewMemoryStorage(), "abc", now)
		assert.ErrorIs(t, err, ErrOAuthStateMismatch)
	})
}
