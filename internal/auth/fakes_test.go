package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redmonkez12/work4u/internal/analytics"
	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
	"github.com/redmonkez12/work4u/internal/user"
)

func testSession(subject, email string) *identity.Session {
	return &identity.Session{
		User:         identity.User{Subject: subject, Email: email},
		ProviderID:   "password",
		IDToken:      "tok-" + subject,
		RefreshToken: "ref-" + subject,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

type fakeProvider struct {
	mu         sync.Mutex
	signUpErr  error
	signInErr  error
	credErr    error
	resetErr   error
	googleUser identity.User
	resets     []string
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string) (*identity.Session, error) {
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	return testSession("uid-"+strings.Split(email, "@")[0], email), nil
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, _ string) (*identity.Session, error) {
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return testSession("uid-"+strings.Split(email, "@")[0], email), nil
}

func (p *fakeProvider) SignInWithCredential(_ context.Context, cred identity.Credential) (*identity.Session, error) {
	if p.credErr != nil {
		return nil, p.credErr
	}
	u := p.googleUser
	if u.Subject == "" {
		u = identity.User{Subject: "google-uid", Email: "g@example.com", DisplayName: "Google Name", PhotoURL: "https://img/g.png"}
	}
	s := testSession(u.Subject, u.Email)
	s.User = u
	s.ProviderID = cred.ProviderID
	return s, nil
}

func (p *fakeProvider) Refresh(_ context.Context, s *identity.Session) (*identity.Session, error) {
	next := *s
	next.ExpiresAt = time.Now().Add(time.Hour)
	return &next, nil
}

func (p *fakeProvider) SendPasswordReset(_ context.Context, email string) error {
	p.mu.Lock()
	p.resets = append(p.resets, email)
	p.mu.Unlock()
	return p.resetErr
}

type fakeProfiles struct {
	mu          sync.Mutex
	profiles    map[string]*user.ApiUser
	createErr   error
	getErr      error
	updateErr   error
	deleteErr   error
	loginErr    error
	clearErr    error
	created     []user.CreateRequest
	updates     []user.ProfileUpdate
	loginStates []map[string]any
	cleared     []string
	deleted     []string
	getCalls    int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*user.ApiUser)}
}

func idFromToken(token string) string {
	return strings.TrimPrefix(token, "tok-")
}

func (f *fakeProfiles) Create(_ context.Context, token string, req user.CreateRequest) (*user.ApiUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := &user.ApiUser{ID: idFromToken(token), Email: req.Email, DisplayName: req.DisplayName, UserType: string(req.UserType), Status: "PENDING_VERIFICATION"}
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) Get(_ context.Context, _ string, id string) (*user.ApiUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, backend.NewAPIError(404, "user not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Update(_ context.Context, _ string, id string, update user.ProfileUpdate) (*user.ApiUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates = append(f.updates, update)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, backend.NewAPIError(404, "user not found")
	}
	if update.DisplayName != nil {
		p.DisplayName = *update.DisplayName
	}
	if update.WorkerTypes != nil {
		p.WorkerTypes = append(user.WorkerTypeList(nil), update.WorkerTypes...)
	}
	if update.Address != nil {
		addr := *update.Address
		p.Address = &addr
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.profiles, id)
	return nil
}

func (f *fakeProfiles) SetLoginState(_ context.Context, _ string, _ string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loginStates = append(f.loginStates, data)
	return f.loginErr
}

func (f *fakeProfiles) ClearLoginState(_ context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared = append(f.cleared, id+"|"+token)
	return f.clearErr
}

func (f *fakeProfiles) TrackEvent(context.Context, analytics.Event) error {
	return nil
}

type trackedEvent struct {
	userID string
	name   string
	data   map[string]any
}

type fakeTracker struct {
	mu     sync.Mutex
	err    error
	events []trackedEvent
}

func (t *fakeTracker) Track(_ context.Context, userID, name string, data map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, trackedEvent{userID: userID, name: name, data: data})
	return t.err
}

type testEnv struct {
	provider *fakeProvider
	profiles *fakeProfiles
	tracker  *fakeTracker
	storage  *state.MemoryStorage
	identity *identity.Auth
	store    *state.Store
	flag     *AuthFlag
	service  *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		provider: &fakeProvider{},
		profiles: newFakeProfiles(),
		tracker:  &fakeTracker{},
		storage:  state.NewMemoryStorage(),
		flag:     &AuthFlag{},
	}
	env.build()
	return env
}

// build wires a client over the env's storage, as after a restart.
func (e *testEnv) build() {
	logger := logging.NewNopLogger()
	e.identity = identity.NewAuth(e.provider, identity.WithStorage(e.storage, nil))
	_ = e.identity.Load(context.Background())
	e.store = state.Load(context.Background(), e.storage, logger)
	e.service = NewService(e.identity, e.profiles, e.tracker, e.store, e.flag, logger)
}
