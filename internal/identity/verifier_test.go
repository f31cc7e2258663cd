package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProjectID = "work4u-test"

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	jws, err := signer.Sign(payload)
	require.NoError(t, err)

	raw, err := jws.CompactSerialize()
	require.NoError(t, err)
	return raw
}

func validClaims() map[string]any {
	return map[string]any{
		"iss":            secureTokenIssuer + testProjectID,
		"aud":            testProjectID,
		"sub":            "uid-bob",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
		"email":          "bob@example.com",
		"email_verified": true,
		"name":           "Bob",
	}
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewStaticOIDCVerifier(testProjectID, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}})
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		u, err := v.Verify(ctx, signToken(t, key, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "uid-bob", u.Subject)
		assert.Equal(t, "bob@example.com", u.Email)
		assert.Equal(t, "Bob", u.DisplayName)
		assert.True(t, u.EmailVerified)
	})

	t.Run("other project", func(t *testing.T) {
		claims := validClaims()
		claims["aud"] = "someone-else"
		_, err := v.Verify(ctx, signToken(t, key, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := v.Verify(ctx, signToken(t, key, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(ctx, signToken(t, other, validClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
