package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// redacted replaces a configured password in config show.
const redacted = "********"

func newConfigCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect jirabridge configuration",
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), appFrom(cmd).ConfigPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long: `Print the configuration after defaults, the file, environment
variables and flags have been applied. A password is shown redacted.`,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := *appFrom(cmd).Config
				if cfg.Tracker.Password != "" {
					cfg.Tracker.Password = redacted
				}
				out, err := yaml.Marshal(&cfg)
				if err != nil {
					return fmt.Errorf("encoding configuration: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
	)
	return c
}
