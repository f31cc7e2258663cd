package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	_ "github.com/redmonkez12/work4u/docs" // Swagger docs (generated)
	"github.com/redmonkez12/work4u/internal/auth"
	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/config"
	"github.com/redmonkez12/work4u/internal/database"
	httpServer "github.com/redmonkez12/work4u/internal/http"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/jobs"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
)

// @title           work4u
// @version         1.0
// @description     Authentication, session and jobs API of the work4u marketplace.

// @contact.name   work4u Support
// @contact.email  support@work4u.app

// @host      localhost:8080
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"state_backend", cfg.State.Backend,
	)

	ctx := context.Background()

	// Client state storage
	storage, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize state storage: %w", err)
	}
	defer storage.close()

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load message catalog: %w", err)
	}

	tickets, err := auth.NewTicketService(cfg.Session.Secret, cfg.Session.TicketTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize ticket service: %w", err)
	}

	// Identity provider
	var verifier identity.TokenVerifier
	if cfg.Identity.VerifyTokens {
		v, err := identity.NewOIDCVerifier(ctx, cfg.Identity.FirebaseProjectID)
		if err != nil {
			return fmt.Errorf("failed to initialize token verifier: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("ID token verification disabled")
	}

	firebase := identity.NewFirebase(identity.FirebaseConfig{
		APIKey:             cfg.Identity.FirebaseAPIKey,
		IdentityToolkitURL: cfg.Identity.IdentityToolkitURL,
		SecureTokenURL:     cfg.Identity.SecureTokenURL,
		RequestURI:         cfg.Google.CallbackURL,
		Timeout:            cfg.Identity.Timeout,
	}, verifier)

	backendClient := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)

	clients := auth.NewClients(auth.ClientDeps{
		Provider: firebase,
		Profiles: backendClient,
		Events:   backendClient,
		Sealer:   tickets,
		Logger:   logger,
	}, storage.factory)
	defer clients.Close()

	var oauth auth.OAuthFlow
	if cfg.Google.Enabled() {
		oauth = identity.NewGoogleFlow(identity.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			CallbackURL:  cfg.Google.CallbackURL,
		})
	} else {
		logger.Warn("Google sign-in disabled (GOOGLE_CLIENT_ID not set)")
	}

	// Jobs API
	var jobService jobs.Service
	if cfg.Jobs.UseMocks {
		logger.Info("using mock jobs service")
		jobService = jobs.NewMockService(cfg.Jobs.MockLatency)
	} else {
		jobService = jobs.NewClient(backend.NewClient(cfg.JobsURL(), cfg.Backend.Timeout, logger))
	}

	// Initialize HTTP handlers
	handlers := httpServer.Handlers{
		Auth:       auth.NewHandler(oauth, catalog),
		Middleware: auth.NewMiddleware(clients, tickets, catalog, cfg.Session.SecureCookies),
		Jobs:       jobs.NewHandler(jobService, catalog, auth.UserIDFromRequest),
	}

	// Initialize router
	router := httpServer.NewRouter(cfg, handlers, logger)

	// Background sweeps of idle clients
	scheduler, err := initScheduler(cfg, clients, storage, logger)
	if err != nil {
		return fmt.Errorf("failed to schedule sweeps: %w", err)
	}
	scheduler.Start()

	// Initialize HTTP server
	server := httpServer.NewServer(
		cfg.Server.Address(),
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		<-scheduler.Stop().Done()
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warn("sweep still running at shutdown")
		}
	}

	return nil
}

// stateStorage is the configured client state backend.
type stateStorage struct {
	factory  state.Factory
	postgres *state.PostgresFactory
	close    func()
}

// initStorage connects the state backend chosen by STATE_BACKEND
func initStorage(ctx context.Context, cfg *config.Config) (*stateStorage, error) {
	switch cfg.State.Backend {
	case config.StateRedis:
		client, err := initRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return &stateStorage{
			factory: state.NewRedisFactory(client, state.DefaultRedisPrefix, cfg.State.TTL),
			close:   func() { _ = client.Close() },
		}, nil

	case config.StatePostgres:
		db, err := database.Open(ctx, cfg.Database.ConnectionString(), cfg.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		if err := database.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		pg := state.NewPostgresFactory(db)
		return &stateStorage{
			factory:  pg,
			postgres: pg,
			close:    func() { _ = db.Close() },
		}, nil

	default:
		return &stateStorage{
			factory: state.NewMemoryFactory(),
			close:   func() {},
		}, nil
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// initScheduler registers the idle client sweep and, on Postgres, the purge
// of abandoned client rows.
func initScheduler(cfg *config.Config, clients *auth.Clients, storage *stateStorage, logger *logging.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.State.SweepSchedule, func() {
		if n := clients.Sweep(cfg.State.IdleTimeout); n > 0 {
			logger.Info("swept idle clients", "count", n, "remaining", clients.Len())
		}

		if storage.postgres == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		purged, err := storage.postgres.PurgeIdle(ctx, time.Now().Add(-cfg.State.PurgeAfter))
		if err != nil {
			logger.Error("failed to purge idle client state", "error", err)
			return
		}
		if purged > 0 {
			logger.Info("purged idle client state", "rows", purged)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid STATE_SWEEP_SCHEDULE %q: %w", cfg.State.SweepSchedule, err)
	}

	return c, nil
}
