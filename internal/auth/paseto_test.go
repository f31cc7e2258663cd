package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestTickets(t *testing.T) *TicketService {
	t.Helper()
	s, err := NewTicketService(testSecret, time.Hour)
	require.NoError(t, err)
	return s
}

func TestNewTicketServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTicketService([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestTicketRoundTrip(t *testing.T) {
	s := newTestTickets(t)

	ticket, err := s.Issue("client-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket, "v4.local."))

	id, err := s.Verify(ticket)
	require.NoError(t, err)
	assert.Equal(t, "client-1", id)
}

func TestTicketExpired(t *testing.T) {
	s := newTestTickets(t)
	issued := time.Now()
	s.now = func() time.Time { return issued }

	ticket, err := s.Issue("client-1")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.Verify(ticket)
	assert.ErrorIs(t, err, ErrExpiredTicket)
}

func TestTicketRejectsForeignKeyAndGarbage(t *testing.T) {
	s := newTestTickets(t)
	other, err := NewTicketService([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)

	ticket, err := other.Issue("client-1")
	require.NoError(t, err)

	_, err = s.Verify(ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	_, err = s.Verify("not-a-ticket")
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestSealIsNotATicket(t *testing.T) {
	s := newTestTickets(t)

	sealed, err := s.Seal([]byte(`{"idToken":"secret"}`))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "secret")

	data, err := s.Open(sealed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"idToken":"secret"}`, string(data))

	// Keys are derived per purpose.
	_, err = s.Verify(sealed)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	ticket, err := s.Issue("client-1")
	require.NoError(t, err)
	_, err = s.Open(ticket)
	assert.ErrorIs(t, err, ErrInvalidSeal)
}
