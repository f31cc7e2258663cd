package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
)

const GoogleProviderID = "google.com"

// GoogleConfig holds the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// GoogleFlow runs the Google OAuth redirect consent and turns its result into
// a Credential for SignInWithCredential.
type GoogleFlow struct {
	provider goth.Provider
}

func NewGoogleFlow(cfg GoogleConfig) *GoogleFlow {
	return &GoogleFlow{
		provider: google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "openid", "email", "profile"),
	}
}

// Begin starts a consent for the given state value. It returns the URL the
// user must visit and the serialized flow data needed by Complete.
func (g *GoogleFlow) Begin(state string) (authURL string, flowData string, err error) {
	sess, err := g.provider.BeginAuth(state)
	if err != nil {
		return "", "", fmt.Errorf("failed to begin google auth: %w", err)
	}

	authURL, err = sess.GetAuthURL()
	if err != nil {
		return "", "", fmt.Errorf("failed to build google auth url: %w", err)
	}

	return authURL, sess.Marshal(), nil
}

// Complete exchanges the callback parameters for a Credential. A callback
// carrying an error parameter means the user dismissed the consent screen.
func (g *GoogleFlow) Complete(ctx context.Context, flowData string, params url.Values) (Credential, error) {
	if params.Get("error") != "" {
		return Credential{}, &ProviderError{
			Code:    "auth/popup-closed-by-user",
			Message: params.Get("error"),
			Kind:    ErrPopupClosed,
		}
	}

	sess, err := g.provider.UnmarshalSession(flowData)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to restore google auth session: %w", err)
	}

	if _, err := sess.Authorize(g.provider, params); err != nil {
		return Credential{}, fmt.Errorf("failed to authorize google session: %w", err)
	}

	gs, ok := sess.(*google.Session)
	if !ok {
		return Credential{}, errors.New("unexpected google session type")
	}
	if gs.IDToken == "" && gs.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: google returned no tokens", ErrInvalidToken)
	}

	return Credential{
		ProviderID:  GoogleProviderID,
		IDToken:     gs.IDToken,
		AccessToken: gs.AccessToken,
	}, nil
}
