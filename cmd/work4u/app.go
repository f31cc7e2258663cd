package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redmonkez12/work4u/internal/auth"
	"github.com/redmonkez12/work4u/internal/backend"
	"github.com/redmonkez12/work4u/internal/config"
	"github.com/redmonkez12/work4u/internal/i18n"
	"github.com/redmonkez12/work4u/internal/identity"
	"github.com/redmonkez12/work4u/internal/jobs"
	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/state"
)

// cliClientID names the single client instance of the command line.
const cliClientID = "cli"

// app is one invocation of the command line: a single client instance
// persisted to a state file.
type app struct {
	client *auth.Client
	jobs   jobs.Service
	tr     i18n.Translator
	out    io.Writer
}

type appOptions struct {
	statePath string
	lang      string
	verbose   bool
}

// defaultStatePath is <user config dir>/work4u/state.json
func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".work4u", "state.json")
	}
	return filepath.Join(dir, "work4u", "state.json")
}

func newApp(ctx context.Context, opts appOptions, out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewNopLogger()
	if opts.verbose {
		logger = logging.NewLogger(true)
	}

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load message catalog: %w", err)
	}
	tag, ok := i18n.ParseTag(opts.lang)
	if !ok {
		tag = i18n.Default()
	}

	tickets, err := auth.NewTicketService(cfg.Session.Secret, cfg.Session.TicketTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	var verifier identity.TokenVerifier
	if cfg.Identity.VerifyTokens {
		v, err := identity.NewOIDCVerifier(ctx, cfg.Identity.FirebaseProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
		}
		verifier = v
	}

	firebase := identity.NewFirebase(identity.FirebaseConfig{
		APIKey:             cfg.Identity.FirebaseAPIKey,
		IdentityToolkitURL: cfg.Identity.IdentityToolkitURL,
		SecureTokenURL:     cfg.Identity.SecureTokenURL,
		Timeout:            cfg.Identity.Timeout,
	}, verifier)

	backendClient := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout, logger)

	deps := auth.ClientDeps{
		Provider: firebase,
		Profiles: backendClient,
		Events:   backendClient,
		Sealer:   tickets,
		Logger:   logger,
	}

	var jobService jobs.Service
	if cfg.Jobs.UseMocks {
		jobService = jobs.NewMockService(cfg.Jobs.MockLatency)
	} else {
		jobService = jobs.NewClient(backend.NewClient(cfg.JobsURL(), cfg.Backend.Timeout, logger))
	}

	return &app{
		client: auth.NewClient(ctx, deps, cliClientID, state.NewFileStorage(opts.statePath)),
		jobs:   jobService,
		tr:     catalog.Translator(tag),
		out:    out,
	}, nil
}

func (a *app) Close() {
	a.client.Close()
}

// describe turns err into the message a user of the given form should see.
func (a *app) describe(form auth.Form, err error) string {
	p := auth.Classify(form, err)
	msg := a.tr.T(p.Key)
	if p.Field != "" {
		return fmt.Sprintf("%s (%s)", msg, p.Field)
	}
	return msg
}

// fail prints err for form and returns it so cobra exits non-zero.
func (a *app) fail(form auth.Form, err error) error {
	printError(a.out, a.describe(form, err))
	return errSilent{err}
}

// errSilent is an error already printed to the user.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }

func isSilent(err error) bool {
	var s errSilent
	return errors.As(err, &s)
}
