package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/state"
	"github.com/redmonkez12/work4u/internal/user"
)

// PendingOAuthKey is the storage key of an OAuth flow awaiting its callback.
const PendingOAuthKey = "work4u_oauth_pending"

const pendingOAuthTTL = 10 * time.Minute

var (
	ErrOAuthStateMismatch = errors.New("oauth state does not match")
	ErrOAuthDisabled      = errors.New("google sign-in is not configured")
)

// OAuthFlow is the Google consent redirect flow.
type OAuthFlow interface {
	Begin(state string) (authURL string, flowData string, err error)
	Complete(ctx context.Context, flowData string, params url.Values) (identity.Credential, error)
}

// disabledFlow stands in for OAuthFlow when no OAuth client is configured.
type disabledFlow struct{}

func (disabledFlow) Begin(string) (string, string, error) {
	return "", "", ErrOAuthDisabled
}

func (disabledFlow) Complete(context.Context, string, url.Values) (identity.Credential, error) {
	return identity.Credential{}, ErrOAuthDisabled
}

// OAuthIntent is what the callback should do with the credential.
type OAuthIntent string

const (
	IntentSignIn OAuthIntent = "signin"
	IntentSignUp OAuthIntent = "signup"
)

// PendingOAuth is an OAuth flow started by a client.
type PendingOAuth struct {
	State       string            `json:"state"`
	Intent      OAuthIntent       `json:"intent"`
	FlowData    string            `json:"flowData"`
	UserType    user.UserType     `json:"userType,omitempty"`
	WorkerTypes []user.WorkerType `json:"workerTypes,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
}

func savePendingOAuth(ctx context.Context, storage state.Storage, p PendingOAuth) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode oauth flow: %w", err)
	}
	if err := storage.Set(ctx, PendingOAuthKey, data); err != nil {
		return fmt.Errorf("failed to save oauth flow: %w", err)
	}
	return nil
}

// takePendingOAuth returns and deletes the pending flow when its state
// matches and it has not expired.
func takePendingOAuth(ctx context.Context, storage state.Storage, stateParam string, now time.Time) (*PendingOAuth, error) {
	data, ok, err := storage.Get(ctx, PendingOAuthKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth flow: %w", err)
	}
	if !ok {
		return nil, ErrOAuthStateMismatch
	}

	var p PendingOAuth
	if err := json.Unmarshal(data, &p); err != nil {
		_ = storage.Delete(ctx, PendingOAuthKey)
		return nil, ErrOAuthStateMismatch
	}
	if p.State == "" || p.State != stateParam {
		return nil, ErrOAuthStateMismatch
	}

	if err := storage.Delete(ctx, PendingOAuthKey); err != nil {
		return nil, fmt.Errorf("failed to delete oauth flow: %w", err)
	}
	if now.Sub(p.StartedAt) > pendingOAuthTTL {
		return nil, ErrOAuthStateMismatch
	}
	return &p, nil
}
