// Package cmd provides the CLI commands for jirabridge.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/app"
	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/source"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitNotFound = 4
	ExitQuery    = 5
)

// ExitError carries a specific exit code. A nil Err means the command has
// already reported its outcome and nothing more should be printed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute onto a process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, source.ErrAuthentication):
		return ExitAuth
	case errors.Is(err, source.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, source.ErrQuery):
		return ExitQuery
	default:
		return ExitFailure
	}
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFile    string
	transport  string
}

// appKey is the context key the per-invocation App is stored under.
type appKey struct{}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "jirabridge",
		Short: "Query, comment on and reopen Jira issues",
		Long: `jirabridge talks to a Jira server over its SOAP (or REST) API.

It lists the issues matching a configured JQL query, shows single issues,
posts comments, reopens issues, and maps between issue keys and browse URLs.
Configuration is read from ~/.config/jirabridge/config.yaml and JIRA_*
environment variables; the password is kept in the system keyring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			a, err := opts.load()
			if err != nil {
				return err
			}
			ctx := a.Log.WithContext(cmd.Context())
			cmd.SetContext(context.WithValue(ctx, appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a, ok := cmd.Context().Value(appKey{}).(*app.App); ok {
				return a.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Configuration file path (default ~/.config/jirabridge/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "Log file path (logs are also written to stderr)")
	flags.StringVar(&opts.transport, "transport", "", "RPC transport: soap or rest")

	root.AddCommand(
		newIssuesCmd(),
		newIssueCmd(),
		newCommentCmd(),
		newReopenCmd(),
		newURLCmd(),
		newKeyCmd(),
		newBelongsCmd(),
		newRefsCmd(),
		newLoginCmd(),
		newWatchCmd(),
		newActivityCmd(),
		newConfigCmd(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads configuration, applies flag overrides and builds the App.
func (o *globalOptions) load() (*app.App, error) {
	path := o.configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	// Flags take priority over file and environment.
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.transport != "" {
		cfg.Tracker.Transport = o.transport
	}

	log, err := logger.New(logger.Config{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		File:  cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Debug().Str("config", path).Msg("configuration loaded")

	a := app.New(cfg, log)
	a.ConfigPath = path
	return a, nil
}

// appFrom returns the App set up by the root command.
func appFrom(cmd *cobra.Command) *app.App {
	a, _ := cmd.Context().Value(appKey{}).(*app.App)
	return a
}
