package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/theme"
)

func newLoginCmd() *cobra.Command {
	var (
		passwordStdin bool
		noVerify      bool
		logout        bool
	)

	c := &cobra.Command{
		Use:   "login",
		Short: "Store the tracker password in the system keyring",
		Long: `Prompt for the tracker user and password, store the password in the
system keyring and verify it by logging in. The user and host entered in
the form are written to the configuration file; the password never is.
With --password-stdin the host and user come from the configuration and
the file is left unchanged.

Examples:
  jirabridge login
  echo "$JIRA_PASSWORD" | jirabridge login --password-stdin
  jirabridge login --logout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			tc := &a.Config.Tracker

			creds, err := a.Credentials()
			if err != nil {
				return err
			}

			if logout {
				if err := creds.Delete(tc.CredentialKey()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed stored password for "+tc.CredentialKey())
				return nil
			}

			var (
				password string
				prompted bool
			)
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				if !stdinIsTerminal() {
					return &ExitError{Code: ExitUsage, Err: errors.New("no terminal; use --password-stdin")}
				}
				if err := loginForm(tc, &password).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return &ExitError{Code: ExitFailure}
					}
					return err
				}
				prompted = true
			}

			if err := tc.Validate(); err != nil {
				return err
			}

			tc.Host = strings.TrimRight(tc.Host, "/")
			tc.Password = password
			if !noVerify {
				client, err := a.Tracker()
				if err != nil {
					return err
				}
				if err := client.Connect(cmd.Context()); err != nil {
					return err
				}
			}

			if err := creds.Set(tc.CredentialKey(), password); err != nil {
				return err
			}

			// Only what the form asked for goes to the file. Values from the
			// environment stay there.
			if prompted {
				if err := model.SaveLogin(a.ConfigPath, tc.Host, tc.User); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Logged in as "+tc.User+" on "+tc.Host))
			return nil
		},
	}

	c.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin instead of prompting")
	c.Flags().BoolVar(&noVerify, "no-verify", false, "Store the password without logging in first")
	c.Flags().BoolVar(&logout, "logout", false, "Remove the stored password")
	return c
}

// loginForm prompts for host and user, prefilled from cfg, and the password.
func loginForm(cfg *model.TrackerConfig, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Jira URL").
				Description("Base URL of the Jira server").
				Placeholder("https://jira.example.com").
				Value(&cfg.Host).
				Validate(validateURL),
			huh.NewInput().
				Title("User").
				Value(&cfg.User).
				Validate(validateRequired("User")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(validateRequired("Password")),
		),
	)
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

// stdinIsTerminal reports whether stdin is attached to a terminal.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
