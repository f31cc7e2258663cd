package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/work4u/internal/analytics"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
)

// ErrMissingClient is returned when a request has no client instance.
var ErrMissingClient = errors.New("no client for request")

// AuthFlag records whether the client is signed in.
type AuthFlag struct {
	v atomic.Bool
}

func (f *AuthFlag) SetAuthenticated(authenticated bool) {
	f.v.Store(authenticated)
}

func (f *AuthFlag) Authenticated() bool {
	return f.v.Load()
}

// ClientDeps are the collaborators shared by every client instance.
type ClientDeps struct {
	Provider identity.Provider
	Profiles ProfileAPI
	Events   analytics.Sender
	Sealer   identity.Sealer
	Logger   *logging.Logger
}

// Client is one application instance: an identity session, the user store
// and the orchestrator working on them. Lock serializes pipelines.
type Client struct {
	ID       string
	Identity *identity.Auth
	Store    *state.Store
	Service  *Service
	Tracker  *analytics.Tracker
	Flag     *AuthFlag
	Storage  state.Storage

	mu       sync.Mutex
	lastSeen atomic.Int64
	teardown func()
}

// NewClient loads the persisted session and user from storage and starts
// following the identity session.
func NewClient(ctx context.Context, deps ClientDeps, id string, storage state.Storage) *Client {
	logger := deps.Logger.WithFields(map[string]any{"client_id": id})

	auth := identity.NewAuth(deps.Provider, identity.WithStorage(storage, deps.Sealer))
	if err := auth.Load(ctx); err != nil {
		logger.Warn("failed to load identity session", "error", err)
	}

	store := state.Load(ctx, storage, logger)
	flag := &AuthFlag{}
	flag.SetAuthenticated(store.Get() != nil)

	var tracker *analytics.Tracker
	var eventTracker EventTracker
	if deps.Events != nil {
		tracker = analytics.NewTracker(deps.Events)
		eventTracker = tracker
	}

	c := &Client{
		ID:       id,
		Identity: auth,
		Store:    store,
		Service:  NewService(auth, deps.Profiles, eventTracker, store, flag, logger),
		Tracker:  tracker,
		Flag:     flag,
		Storage:  storage,
	}
	c.touch(time.Now())
	c.teardown = c.Service.Restore(ctx)
	return c
}

func (c *Client) Lock()   { c.mu.Lock() }
func (c *Client) Unlock() { c.mu.Unlock() }

// Close stops following the identity session.
func (c *Client) Close() {
	if c.teardown != nil {
		c.teardown()
	}
}

func (c *Client) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *Client) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

// Clients keeps the client instances of the BFF, one per browser. Idle
// instances are dropped from memory and rebuilt from storage on return.
type Clients struct {
	deps    ClientDeps
	storage state.Factory
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

func NewClients(deps ClientDeps, storage state.Factory) *Clients {
	return &Clients{
		deps:    deps,
		storage: storage,
		now:     time.Now,
		clients: make(map[string]*Client),
	}
}

// New creates a client with a fresh id.
func (cs *Clients) New(ctx context.Context) *Client {
	return cs.Get(ctx, uuid.NewString())
}

// Get returns the client with id, rebuilding it from storage when it is
// not in memory.
func (cs *Clients) Get(ctx context.Context, id string) *Client {
	cs.mu.Lock()
	c, ok := cs.clients[id]
	cs.mu.Unlock()
	if ok {
		c.touch(cs.now())
		return c
	}

	built := NewClient(ctx, cs.deps, id, cs.storage.ForClient(id))

	cs.mu.Lock()
	if existing, ok := cs.clients[id]; ok {
		cs.mu.Unlock()
		built.Close()
		existing.touch(cs.now())
		return existing
	}
	cs.clients[id] = built
	cs.mu.Unlock()

	return built
}

// Remove closes the client and deletes its persisted state.
func (cs *Clients) Remove(ctx context.Context, id string) error {
	cs.mu.Lock()
	c, ok := cs.clients[id]
	delete(cs.clients, id)
	cs.mu.Unlock()

	if ok {
		c.Close()
	}
	if err := cs.storage.Purge(ctx, id); err != nil {
		return fmt.Errorf("failed to purge client state: %w", err)
	}
	return nil
}

// Sweep closes clients idle for longer than maxIdle and returns how many
// were dropped. Their state stays in storage.
func (cs *Clients) Sweep(maxIdle time.Duration) int {
	now := cs.now()

	cs.mu.Lock()
	var idle []*Client
	for id, c := range cs.clients {
		if c.idleSince(now) > maxIdle {
			idle = append(idle, c)
			delete(cs.clients, id)
		}
	}
	cs.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	return len(idle)
}

// Len returns the number of clients in memory.
func (cs *Clients) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.clients)
}

// Close closes every client.
func (cs *Clients) Close() {
	cs.mu.Lock()
	all := cs.clients
	cs.clients = make(map[string]*Client)
	cs.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
