package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Defaults applied when the config file and environment leave a key unset.
const (
	DefaultWSDLPath        = "/rpc/soap/jirasoapservice-v2?wsdl"
	DefaultTransport       = "soap"
	DefaultTimeoutSec      = 30
	DefaultTimezone        = "Local"
	DefaultPollIntervalSec = 300
	DefaultLogLevel        = "info"
)

// TrackerConfig describes how to reach the issue tracker.
type TrackerConfig struct {
	// Host is the tracker base URL, e.g. https://jira.example.com.
	Host string `mapstructure:"host" yaml:"host" env:"JIRA_HOST"`

	// WSDLPath is appended to Host to find the SOAP service description.
	WSDLPath string `mapstructure:"wsdl_path" yaml:"wsdl_path" env:"JIRA_WSDL_PATH"`

	User string `mapstructure:"user" yaml:"user" env:"JIRA_USER"`

	// Password is normally left empty and read from the keyring.
	Password string `mapstructure:"password" yaml:"password,omitempty" env:"JIRA_PASSWORD"`

	// JQL is the base query every fetch starts from.
	JQL string `mapstructure:"jql" yaml:"jql" env:"JIRA_JQL"`

	// Transport selects the RPC backend: "soap" or "rest".
	Transport string `mapstructure:"transport" yaml:"transport" env:"JIRA_TRANSPORT"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" env:"JIRA_TIMEOUT_SEC"`

	// Timezone is the IANA zone "updated" timestamps are written in, or "Local".
	Timezone string `mapstructure:"timezone" yaml:"timezone" env:"JIRA_TIMEZONE"`
}

// SyncConfig holds settings for the incremental fetch loop.
type SyncConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec" env:"JIRABRIDGE_POLL_INTERVAL_SEC"`

	// DBPath is the SQLite file holding sync cursors and the activity log.
	DBPath string `mapstructure:"db_path" yaml:"db_path" env:"JIRABRIDGE_DB"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" env:"JIRABRIDGE_LOG_LEVEL"`
	File  string `mapstructure:"file" yaml:"file" env:"JIRABRIDGE_LOG_FILE"`
	JSON  bool   `mapstructure:"json" yaml:"json" env:"JIRABRIDGE_LOG_JSON"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Tracker TrackerConfig `mapstructure:"tracker" yaml:"tracker"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ErrNoHost is returned by Validate when no tracker host is configured.
var ErrNoHost = errors.New("tracker host is not configured")

// Validate checks the settings needed before dialing the tracker.
func (c TrackerConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrNoHost
	}
	return nil
}

// Timeout returns the per-call timeout.
func (c TrackerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Location resolves Timezone. Empty and "Local" mean the process zone.
func (c TrackerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CredentialKey is the keyring key the tracker password is stored under.
func (c TrackerConfig) CredentialKey() string {
	return "jira-" + c.User + "@" + strings.TrimRight(c.Host, "/")
}

// PollInterval returns the poll interval of the watch loop.
func (c SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// configDir returns ~/.config/jirabridge, or "." when there is no home.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "jirabridge")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/jirabridge/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "jirabridge.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Tracker: TrackerConfig{
			WSDLPath:   DefaultWSDLPath,
			Transport:  DefaultTransport,
			TimeoutSec: DefaultTimeoutSec,
			Timezone:   DefaultTimezone,
		},
		Sync: SyncConfig{
			PollIntervalSec: DefaultPollIntervalSec,
			DBPath:          DefaultDBPath(),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper
// and overlays JIRA_* / JIRABRIDGE_* environment variables. A missing file
// yields the defaults plus the environment.
func LoadConfig(path string) (*AppConfig, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	envCfg := &AppConfig{}
	if err := env.Parse(envCfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := mergo.Merge(cfg, envCfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging environment config: %w", err)
	}

	cfg.Tracker.Host = strings.TrimRight(cfg.Tracker.Host, "/")
	return cfg, nil
}

func loadFile(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("tracker.wsdl_path", DefaultWSDLPath)
	v.SetDefault("tracker.transport", DefaultTransport)
	v.SetDefault("tracker.timeout_sec", DefaultTimeoutSec)
	v.SetDefault("tracker.timezone", DefaultTimezone)
	v.SetDefault("sync.poll_interval_sec", DefaultPollIntervalSec)
	v.SetDefault("sync.db_path", DefaultDBPath())
	v.SetDefault("log.level", DefaultLogLevel)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return defaultAppConfig(), nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveLogin records host and user in the config file at path, creating it
// and its parent directories if needed. Every other key keeps the value the
// file already has; defaults and environment overrides are not written.
func SaveLogin(path, host, user string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.Set("tracker.host", strings.TrimRight(host, "/"))
	v.Set("tracker.user", user)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
