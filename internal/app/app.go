// Package app wires configuration, credentials and storage into the
// tracker client and poller used by the CLI commands.
package app

import (
	"errors"
	"fmt"

	"github.com/nhle/jira-bridge/internal/credential"
	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/source"
	"github.com/nhle/jira-bridge/internal/store"
	"github.com/nhle/jira-bridge/internal/tracker"
)

// App holds the long-lived dependencies of one CLI invocation. The store
// and keyring are opened on first use, so commands that need neither
// never touch the disk.
type App struct {
	Config *model.AppConfig
	Log    *logger.Logger

	// ConfigPath is the file Config was loaded from.
	ConfigPath string

	// OpenCredentials and OpenStore are replaceable in tests.
	OpenCredentials func() (*credential.Store, error)
	OpenStore       func(path string) (store.Store, error)

	creds  *credential.Store
	store  store.Store
	closer func() error
	client *tracker.Client
}

// New creates an App from loaded configuration.
func New(cfg *model.AppConfig, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		Config:          cfg,
		Log:             log,
		OpenCredentials: credential.Open,
		OpenStore: func(path string) (store.Store, error) {
			return store.NewSQLiteStore(path)
		},
	}
}

// Credentials returns the keyring-backed credential store.
func (a *App) Credentials() (*credential.Store, error) {
	if a.creds != nil {
		return a.creds, nil
	}
	creds, err := a.OpenCredentials()
	if err != nil {
		return nil, err
	}
	a.creds = creds
	return creds, nil
}

// Store returns the local SQLite store, opening it on first use.
func (a *App) Store() (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := a.OpenStore(a.Config.Sync.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", a.Config.Sync.DBPath, err)
	}
	a.store = s
	if c, ok := s.(interface{ Close() error }); ok {
		a.closer = c.Close
	}
	return s, nil
}

// Password returns the tracker password: the configured value when set,
// otherwise the one stored in the keyring. A missing keyring entry yields
// an empty password and the login fails with an authentication error.
func (a *App) Password() (string, error) {
	if a.Config.Tracker.Password != "" {
		return a.Config.Tracker.Password, nil
	}

	creds, err := a.Credentials()
	if err != nil {
		return "", err
	}

	key := a.Config.Tracker.CredentialKey()
	password, err := creds.Get(key)
	if errors.Is(err, credential.ErrNotFound) {
		a.Log.Debug().Str("key", key).Msg("no stored password")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return password, nil
}

// Tracker builds the tracker client. The transport is created but not
// opened; the first operation connects.
func (a *App) Tracker() (*tracker.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	tc := a.Config.Tracker
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	kind, err := source.ParseTransportKind(tc.Transport)
	if err != nil {
		return nil, err
	}
	loc, err := tc.Location()
	if err != nil {
		return nil, err
	}
	password, err := a.Password()
	if err != nil {
		return nil, err
	}

	transport, err := tracker.NewTransport(kind, source.Options{Timeout: tc.Timeout()}, a.Log)
	if err != nil {
		return nil, err
	}

	a.client = tracker.New(tracker.Config{
		Host:     tc.Host,
		WSDLPath: tc.WSDLPath,
		User:     tc.User,
		Password: password,
		Query:    tc.JQL,
		Location: loc,
	}, transport, a.Log)
	return a.client, nil
}

// URLTracker returns a client for the browse-URL helpers only. It has no
// transport and needs no password; calling a network operation on it
// panics.
func (a *App) URLTracker() (*tracker.Client, error) {
	if err := a.Config.Tracker.Validate(); err != nil {
		return nil, err
	}
	return tracker.New(tracker.Config{Host: a.Config.Tracker.Host}, nil, a.Log), nil
}

// Close releases the store, if it was opened, and the log file.
func (a *App) Close() error {
	var errs []error
	if a.closer != nil {
		errs = append(errs, a.closer())
	}
	errs = append(errs, a.Log.Close())
	return errors.Join(errs...)
}
