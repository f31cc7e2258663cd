package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redmonkez12/work4u/internal/analytics"
	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
	"github.com/redmonkez12/work4u/internal/user"
)

// IdentityAuth is the identity session of one client instance.
type IdentityAuth interface {
	SignUp(ctx context.Context, email, password string) (*identity.User, error)
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignInWithCredential(ctx context.Context, cred identity.Credential) (*identity.User, error)
	CurrentUser() *identity.User
	IDToken(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	OnStateChanged(ctx context.Context, fn identity.StateListener) func()
}

// ProfileAPI is the backend users API.
type ProfileAPI interface {
	user.Repository
	SetLoginState(ctx context.Context, token, id string, data map[string]any) error
	ClearLoginState(ctx context.Context, token, id string) error
}

// EventTracker sends analytics events.
type EventTracker interface {
	Track(ctx context.Context, userID, name string, data map[string]any) error
}

// CookieFlag mirrors whether the client is signed in, for the client
// readable auth cookie.
type CookieFlag interface {
	SetAuthenticated(authenticated bool)
}

// Service runs the sign-up, sign-in and session pipelines of one client
// instance. Fatal steps abort the pipeline and return a wrapped error;
// best-effort steps are logged and skipped.
type Service struct {
	identity IdentityAuth
	profiles ProfileAPI
	tracker  EventTracker
	store    *state.Store
	flag     CookieFlag
	logger   *logging.Logger
	now      func() time.Time

	busy        atomic.Int32
	restored    atomic.Bool
	restoreOnce sync.Once
	teardown    func()
}

func NewService(
	identity IdentityAuth,
	profiles ProfileAPI,
	tracker EventTracker,
	store *state.Store,
	flag CookieFlag,
	logger *logging.Logger,
) *Service {
	if flag == nil {
		flag = noopFlag{}
	}
	return &Service{
		identity: identity,
		profiles: profiles,
		tracker:  tracker,
		store:    store,
		flag:     flag,
		logger:   logger,
		now:      time.Now,
	}
}

// SignUp creates the identity account and the backend profile. A backend
// failure leaves the identity account in place and publishes nothing.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*user.ApplicationUser, error) {
	defer s.begin()()

	idp, err := s.identity.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}

	userType := in.UserType
	if userType == "" {
		userType = user.UserTypePersonal
	}

	if _, err := s.profiles.Create(ctx, token, user.CreateRequest{
		Email:       in.Email,
		DisplayName: in.DisplayName,
		UserType:    userType,
	}); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if len(in.WorkerTypes) > 0 {
		s.patchWorkerTypes(ctx, token, idp.Subject, in.WorkerTypes)
	}

	extra := map[string]any{"userType": userType, "workerTypes": in.WorkerTypes}
	s.track(ctx, idp.Subject, analytics.EventUserSignup, extra)
	s.setLoginState(ctx, token, idp.Subject, analytics.MethodPasswordSignup, extra)

	u := user.Normalize(*idp, nil,
		user.WithDisplayName(in.DisplayName),
		user.WithUserType(userType),
		user.WithWorkerTypes(in.WorkerTypes),
		user.WithStatus(user.StatusPendingVerification),
		user.WithToken(token),
	)
	s.publish(ctx, u)
	return u, nil
}

// SignIn signs in with email and password and loads the backend profile.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*user.ApplicationUser, error) {
	defer s.begin()()

	idp, err := s.identity.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}

	profile, err := s.profiles.Get(ctx, token, idp.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	s.track(ctx, idp.Subject, analytics.EventUserLogin, map[string]any{})
	s.setLoginState(ctx, token, idp.Subject, analytics.MethodPasswordSignin, map[string]any{
		"userType":    profile.UserType,
		"workerTypes": profile.WorkerTypes,
	})

	u := user.Normalize(*idp, profile, user.WithToken(token))
	s.publish(ctx, u)
	return u, nil
}

// SignInWithGoogle signs in with a completed Google consent. An account
// without a backend profile yields ErrRegistrationRequired.
func (s *Service) SignInWithGoogle(ctx context.Context, cred identity.Credential) (*user.ApplicationUser, error) {
	defer s.begin()()

	idp, err := s.identity.SignInWithCredential(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in with google: %w", err)
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}

	profile, err := s.profiles.Get(ctx, token, idp.Subject)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil, ErrRegistrationRequired
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	s.track(ctx, idp.Subject, analytics.EventUserLogin, map[string]any{"method": "google"})
	s.setLoginState(ctx, token, idp.Subject, analytics.MethodGoogleSignin, map[string]any{
		"userType":    profile.UserType,
		"workerTypes": profile.WorkerTypes,
	})

	u := user.Normalize(*idp, profile, user.WithToken(token))
	s.publish(ctx, u)
	return u, nil
}

// SignUpWithGoogle registers a Google account with the backend.
func (s *Service) SignUpWithGoogle(ctx context.Context, cred identity.Credential, userType user.UserType, workerTypes []user.WorkerType) (*user.ApplicationUser, error) {
	defer s.begin()()

	idp, err := s.identity.SignInWithCredential(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in with google: %w", err)
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}

	if userType == "" {
		userType = user.UserTypePersonal
	}

	if _, err := s.profiles.Create(ctx, token, user.CreateRequest{
		Email:       idp.Email,
		DisplayName: idp.DisplayName,
		UserType:    userType,
	}); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.patchWorkerTypes(ctx, token, idp.Subject, workerTypes)

	s.track(ctx, idp.Subject, analytics.EventUserSignup, map[string]any{
		"method":      "google",
		"userType":    userType,
		"workerTypes": workerTypes,
	})
	s.setLoginState(ctx, token, idp.Subject, analytics.MethodGoogleSignup, map[string]any{
		"userType":    userType,
		"workerTypes": workerTypes,
	})

	u := user.Normalize(*idp, nil,
		user.WithUserType(userType),
		user.WithWorkerTypes(workerTypes),
		user.WithStatus(user.StatusPendingVerification),
		user.WithToken(token),
	)
	s.publish(ctx, u)
	return u, nil
}

// SignOut ends the identity session. If that fails local state is left
// untouched. Signing out without a session succeeds.
func (s *Service) SignOut(ctx context.Context) error {
	defer s.begin()()
	return s.signOut(ctx, true)
}

func (s *Service) signOut(ctx context.Context, clearLoginState bool) error {
	var id, token string
	if cur := s.identity.CurrentUser(); cur != nil {
		id = cur.Subject
		t, err := s.identity.IDToken(ctx)
		if err != nil {
			s.logger.Warn("failed to get id token before sign-out", "user_id", id, "error", err)
		}
		token = t
	}

	if err := s.identity.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	s.publish(ctx, nil)

	if clearLoginState && id != "" && token != "" {
		if err := s.profiles.ClearLoginState(ctx, token, id); err != nil {
			s.logger.Warn("failed to clear login state", "user_id", id, "error", err)
		}
	}
	return nil
}

// Restore follows the identity session: a signed-in session loads the
// profile and publishes the user, a signed-out one publishes nil. Fetch
// failures publish nil. Calling Restore again returns the same teardown.
func (s *Service) Restore(ctx context.Context) func() {
	s.restoreOnce.Do(func() {
		s.teardown = s.identity.OnStateChanged(ctx, s.onStateChanged)
	})
	return s.teardown
}

// Loading reports whether the session is not restored yet or a pipeline is
// running.
func (s *Service) Loading() bool {
	return !s.restored.Load() || s.busy.Load() > 0
}

func (s *Service) onStateChanged(ctx context.Context, idp *identity.User) {
	defer s.restored.Store(true)

	// Pipelines publish their own result.
	if s.busy.Load() > 0 {
		return
	}

	if idp == nil {
		s.publish(ctx, nil)
		return
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		s.logger.Warn("failed to get id token while restoring session", "user_id", idp.Subject, "error", err)
		s.publish(ctx, nil)
		return
	}

	profile, err := s.profiles.Get(ctx, token, idp.Subject)
	if err != nil {
		s.logger.Warn("failed to fetch profile while restoring session", "user_id", idp.Subject, "error", err)
		s.publish(ctx, nil)
		return
	}

	s.publish(ctx, user.Normalize(*idp, profile, user.WithToken(token)))
}

// GetIDToken returns a valid ID token, or identity.ErrNoSession.
func (s *Service) GetIDToken(ctx context.Context) (string, error) {
	return s.identity.IDToken(ctx)
}

// CurrentUser returns a copy of the published user, or nil.
func (s *Service) CurrentUser() *user.ApplicationUser {
	return s.store.Get()
}

// UpdateProfile sends one PATCH and returns the backend's profile. The
// published user is not changed; see ApplyProfileUpdate.
func (s *Service) UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (*user.ApiUser, error) {
	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get id token: %w", err)
	}

	updated, err := s.profiles.Update(ctx, token, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// ApplyProfileUpdate merges a profile PATCH result into the published user
// and publishes it. It returns nil when nobody is signed in.
func (s *Service) ApplyProfileUpdate(ctx context.Context, updated *user.ApiUser, sent user.ProfileUpdate) *user.ApplicationUser {
	current := s.store.Get()
	if current == nil {
		return nil
	}

	next := user.MergeProfileUpdate(current, updated, sent)
	s.publish(ctx, next)
	return next
}

// DeleteAccount deletes the backend profile and signs out.
func (s *Service) DeleteAccount(ctx context.Context) error {
	defer s.begin()()

	cur := s.identity.CurrentUser()
	if cur == nil {
		return identity.ErrNoSession
	}

	token, err := s.identity.IDToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get id token: %w", err)
	}

	if err := s.profiles.Delete(ctx, token, cur.Subject); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.logger.Info("account deleted", "user_id", cur.Subject)
	return s.signOut(ctx, false)
}

// RequestPasswordReset asks the identity provider to email a reset link.
// Failures are only logged so callers cannot tell whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) {
	if err := s.identity.SendPasswordReset(ctx, email); err != nil {
		s.logger.Warn("failed to send password reset", "error", err)
	}
}

// begin marks a pipeline as running. The returned func ends it.
func (s *Service) begin() func() {
	s.busy.Add(1)
	return func() { s.busy.Add(-1) }
}

func (s *Service) publish(ctx context.Context, u *user.ApplicationUser) {
	if u != nil {
		if err := u.Validate(); err != nil {
			s.logger.Warn("user has unknown enum values", "user_id", u.ID, "error", err)
		}
	}
	s.store.Set(ctx, u)
	s.flag.SetAuthenticated(u != nil)
}

func (s *Service) patchWorkerTypes(ctx context.Context, token, id string, types []user.WorkerType) {
	if len(types) == 0 {
		return
	}
	if _, err := s.profiles.Update(ctx, token, id, user.ProfileUpdate{WorkerTypes: types}); err != nil {
		s.logger.Warn("failed to save worker types", "user_id", id, "error", err)
	}
}

func (s *Service) track(ctx context.Context, userID, name string, data map[string]any) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.Track(ctx, userID, name, data); err != nil {
		s.logger.Warn("failed to track event", "event", name, "error", err)
	}
}

func (s *Service) setLoginState(ctx context.Context, token, id, method string, extra map[string]any) {
	data := analytics.LoggedInData(ctx, method, extra, s.now())
	if err := s.profiles.SetLoginState(ctx, token, id, data); err != nil {
		s.logger.Warn("failed to save login state", "user_id", id, "method", method, "error", err)
	}
}

type noopFlag struct{}

func (noopFlag) SetAuthenticated(bool) {}
