package identity

import (
	"context"
	"encoding/json"
	"fmt"
)

// SessionKey is the storage key of the persisted identity session.
const SessionKey = "work4u_idp_session"

// Storage is the key/value store a session is persisted to.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Sealer encrypts persisted sessions. Sessions hold refresh tokens, so
// shared stores should always be given one.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

type persistence struct {
	storage Storage
	sealer  Sealer
}

func (p *persistence) load(ctx context.Context) (*Session, error) {
	if p == nil || p.storage == nil {
		return nil, nil
	}

	data, ok, err := p.storage.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	if p.sealer != nil {
		data, err = p.sealer.Open(string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.User.Subject == "" || s.RefreshToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (p *persistence) save(ctx context.Context, s *Session) error {
	if p == nil || p.storage == nil {
		return nil
	}
	if s == nil {
		return p.storage.Delete(ctx, SessionKey)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if p.sealer != nil {
		sealed, err := p.sealer.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal session: %w", err)
		}
		data = []byte(sealed)
	}

	return p.storage.Set(ctx, SessionKey, data)
}
