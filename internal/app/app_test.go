package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/jira-bridge/internal/credential"
	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/source"
)

func testApp(t *testing.T, tc model.TrackerConfig) (*App, *credential.Store) {
	t.Helper()
	creds := credential.NewStore(keyring.NewArrayKeyring(nil))
	a := New(&model.AppConfig{
		Tracker: tc,
		Sync:    model.SyncConfig{DBPath: filepath.Join(t.TempDir(), "bridge.db")},
	}, nil)
	a.OpenCredentials = func() (*credential.Store, error) { return creds, nil }
	t.Cleanup(func() { _ = a.Close() })
	return a, creds
}

func TestPassword_ConfiguredValueWins(t *testing.T) {
	a, creds := testApp(t, model.TrackerConfig{Host: "https://jira.example.com", User: "behat", Password: "from-config"})
	require.NoError(t, creds.Set(a.Config.Tracker.CredentialKey(), "from-keyring"))

	got, err := a.Password()
	require.NoError(t, err)
	assert.Equal(t, "from-config", got)
}

func TestPassword_FromKeyring(t *testing.T) {
	a, creds := testApp(t, model.TrackerConfig{Host: "https://jira.example.com", User: "behat"})
	require.NoError(t, creds.Set("jira-behat@https://jira.example.com", "from-keyring"))

	got, err := a.Password()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)
}

func TestPassword_MissingIsEmpty(t *testing.T) {
	a, _ := testApp(t, model.TrackerConfig{Host: "https://jira.example.com", User: "behat"})

	got, err := a.Password()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTracker_Validation(t *testing.T) {
	a, _ := testApp(t, model.TrackerConfig{})
	_, err := a.Tracker()
	assert.ErrorIs(t, err, model.ErrNoHost)

	a, _ = testApp(t, model.TrackerConfig{Host: "https://jira.example.com", Transport: "carrier-pigeon"})
	_, err = a.Tracker()
	assert.Error(t, err)

	a, _ = testApp(t, model.TrackerConfig{Host: "https://jira.example.com", Timezone: "Mars/Olympus"})
	_, err = a.Tracker()
	assert.Error(t, err)
}

func TestTracker_BuiltOnce(t *testing.T) {
	a, _ := testApp(t, model.TrackerConfig{
		Host:      "https://jira.example.com",
		WSDLPath:  model.DefaultWSDLPath,
		User:      "behat",
		JQL:       "project = ACME",
		Transport: "soap",
		Timezone:  "UTC",
	})

	first, err := a.Tracker()
	require.NoError(t, err)
	second, err := a.Tracker()
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "project = ACME", first.Config().Query)
	assert.Equal(t, "UTC", first.Config().Location.String())
}

func TestURLTracker(t *testing.T) {
	a, _ := testApp(t, model.TrackerConfig{Host: "https://jira.example.com"})

	c, err := a.URLTracker()
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com/browse/ACME-1", c.URLForIssue("ACME-1"))

	_, err = c.FetchIssue(context.Background(), "ACME-1")
	assert.ErrorIs(t, err, source.ErrTransport, "no transport behind URL-only client")
}

func TestStore_OpenedOnce(t *testing.T) {
	a, _ := testApp(t, model.TrackerConfig{Host: "https://jira.example.com"})

	first, err := a.Store()
	require.NoError(t, err)
	second, err := a.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)
}
