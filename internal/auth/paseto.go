package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"aidanwoods.dev/go-paseto"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidTicket = errors.New("invalid session ticket")
	ErrExpiredTicket = errors.New("session ticket has expired")
	ErrInvalidSeal   = errors.New("invalid sealed value")
)

const (
	ticketInfo = "work4u session ticket"
	sealInfo   = "work4u storage seal"

	// sealTTL bounds how long a sealed value stays readable. Sessions are
	// sealed again on every token refresh.
	sealTTL = 30 * 24 * time.Hour
)

// TicketService issues and verifies session tickets, PASETO v4.local
// tokens naming the client instance of a browser. Ticket and storage keys
// are derived from one secret with HKDF.
type TicketService struct {
	ticketKey paseto.V4SymmetricKey
	sealKey   paseto.V4SymmetricKey
	ttl       time.Duration
	now       func() time.Time
}

func NewTicketService(secret []byte, ttl time.Duration) (*TicketService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}

	ticketKey, err := deriveKey(secret, ticketInfo)
	if err != nil {
		return nil, err
	}
	sealKey, err := deriveKey(secret, sealInfo)
	if err != nil {
		return nil, err
	}

	return &TicketService{
		ticketKey: ticketKey,
		sealKey:   sealKey,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func deriveKey(secret []byte, info string) (paseto.V4SymmetricKey, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), buf); err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("failed to derive key: %w", err)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(buf)
	if err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("failed to create symmetric key: %w", err)
	}
	return key, nil
}

// TTL is the lifetime of issued tickets.
func (s *TicketService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a ticket for clientID.
func (s *TicketService) Issue(clientID string) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetString("client_id", clientID)

	return token.V4Encrypt(s.ticketKey, []byte(ticketInfo)), nil
}

// Verify returns the client id of a valid ticket.
func (s *TicketService) Verify(ticket string) (string, error) {
	token, err := s.parse(s.ticketKey, ticket, ticketInfo)
	if err != nil {
		if errors.Is(err, &paseto.RuleError{}) {
			return "", ErrExpiredTicket
		}
		return "", ErrInvalidTicket
	}

	clientID, err := token.GetString("client_id")
	if err != nil || clientID == "" {
		return "", ErrInvalidTicket
	}
	return clientID, nil
}

// Seal encrypts data for storage. It implements identity.Sealer.
func (s *TicketService) Seal(data []byte) (string, error) {
	now := s.now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(sealTTL))
	token.SetString("data", string(data))

	return token.V4Encrypt(s.sealKey, []byte(sealInfo)), nil
}

// Open decrypts a value produced by Seal.
func (s *TicketService) Open(sealed string) ([]byte, error) {
	token, err := s.parse(s.sealKey, sealed, sealInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}

	data, err := token.GetString("data")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeal, err)
	}
	return []byte(data), nil
}

func (s *TicketService) parse(key paseto.V4SymmetricKey, value, implicit string) (*paseto.Token, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ValidAt(s.now()))
	return parser.ParseV4Local(key, value, []byte(implicit))
}
