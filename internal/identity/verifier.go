package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const secureTokenIssuer = "https://securetoken.google.com/"

// OIDCVerifier validates Firebase ID tokens against the project's OIDC
// discovery document
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	PhoneNumber   string `json:"phone_number"`
}

// NewOIDCVerifier fetches the discovery document for the given Firebase project
func NewOIDCVerifier(ctx context.Context, projectID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, secureTokenIssuer+projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to discover token issuer: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: projectID}),
	}, nil
}

// NewStaticOIDCVerifier builds a verifier from an already known key set,
// skipping discovery
func NewStaticOIDCVerifier(projectID string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(secureTokenIssuer+projectID, keySet, &oidc.Config{ClientID: projectID}),
	}
}

// Verify checks the token signature, issuer, audience and expiry
func (v *OIDCVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	token, err := v.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims firebaseClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims: %v", ErrInvalidToken, err)
	}

	return &User{
		Subject:       token.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		PhotoURL:      claims.Picture,
		PhoneNumber:   claims.PhoneNumber,
		EmailVerified: claims.EmailVerified,
	}, nil
}
