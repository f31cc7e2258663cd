package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// StateListener is called with the signed-in user, or nil once signed out.
type StateListener func(ctx context.Context, u *User)

// Auth holds the identity session of one client instance. It persists the
// session when given a Storage and notifies listeners when the signed-in
// user changes.
type Auth struct {
	provider Provider
	persist  *persistence
	now      func() time.Time
	refresh  singleflight.Group

	mu        sync.Mutex
	session   *Session
	listeners map[int]StateListener
	nextID    int
}

type Option func(*Auth)

// WithStorage persists the session to storage, sealed when sealer is not nil.
func WithStorage(storage Storage, sealer Sealer) Option {
	return func(a *Auth) {
		a.persist = &persistence{storage: storage, sealer: sealer}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

func NewAuth(provider Provider, opts ...Option) *Auth {
	a := &Auth{
		provider:  provider,
		now:       time.Now,
		listeners: make(map[int]StateListener),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load reads the persisted session, if any. On error the holder stays
// signed out.
func (a *Auth) Load(ctx context.Context) error {
	s, err := a.persist.load(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return nil
}

func (a *Auth) SignUp(ctx context.Context, email, password string) (*User, error) {
	s, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, s)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*User, error) {
	s, err := a.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, s)
}

func (a *Auth) SignInWithCredential(ctx context.Context, cred Credential) (*User, error) {
	s, err := a.provider.SignInWithCredential(ctx, cred)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, s)
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (a *Auth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	u := a.session.User
	return &u
}

// ProviderID returns the sign-in method of the current session, or "".
func (a *Auth) ProviderID() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return ""
	}
	return a.session.ProviderID
}

// IDToken returns a valid ID token for the current session, refreshing it
// when it is about to expire. Concurrent callers share one refresh. A
// refresh rejected by the provider ends the session.
func (a *Auth) IDToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()

	if s == nil {
		return "", ErrNoSession
	}
	if !s.Expired(a.now()) {
		return s.IDToken, nil
	}

	v, err, _ := a.refresh.Do(s.RefreshToken, func() (any, error) {
		return a.provider.Refresh(ctx, s)
	})
	if err != nil {
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUserDisabled) || errors.Is(err, ErrUserNotFound) {
			if clearErr := a.replace(ctx, s, nil); clearErr != nil {
				return "", errors.Join(err, clearErr)
			}
		}
		return "", fmt.Errorf("failed to refresh id token: %w", err)
	}
	refreshed := v.(*Session)

	if err := a.replace(ctx, s, refreshed); err != nil {
		return "", err
	}
	return refreshed.IDToken, nil
}

// SignOut ends the current session. When the persisted session cannot be
// removed the session is kept and the error returned.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()

	if err := a.persist.save(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if s == nil {
		return nil
	}
	return a.replace(ctx, s, nil)
}

func (a *Auth) SendPasswordReset(ctx context.Context, email string) error {
	return a.provider.SendPasswordReset(ctx, email)
}

// OnStateChanged registers fn and calls it right away with the current user.
// The returned func removes the listener.
func (a *Auth) OnStateChanged(ctx context.Context, fn StateListener) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	var current *User
	if a.session != nil {
		u := a.session.User
		current = &u
	}
	a.mu.Unlock()

	fn(ctx, current)

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) establish(ctx context.Context, s *Session) (*User, error) {
	a.mu.Lock()
	prev := a.session
	a.mu.Unlock()

	if err := a.replace(ctx, prev, s); err != nil {
		return nil, err
	}
	u := s.User
	return &u, nil
}

// replace swaps the session if it is still prev, persists it and notifies
// listeners when the signed-in subject changed.
func (a *Auth) replace(ctx context.Context, prev, next *Session) error {
	if next != nil {
		if err := a.persist.save(ctx, next); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}

	a.mu.Lock()
	if a.session != prev {
		a.mu.Unlock()
		return nil
	}
	a.session = next
	listeners := a.snapshotListeners()
	a.mu.Unlock()

	if next == nil {
		if err := a.persist.save(ctx, nil); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}

	if sameSubject(prev, next) {
		return nil
	}

	var u *User
	if next != nil {
		cp := next.User
		u = &cp
	}
	for _, fn := range listeners {
		fn(ctx, u)
	}
	return nil
}

// snapshotListeners returns listeners in registration order. Callers hold mu.
func (a *Auth) snapshotListeners() []StateListener {
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]StateListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.listeners[id])
	}
	return out
}

func sameSubject(a, b *Session) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.User.Subject == b.User.Subject
	}
}
