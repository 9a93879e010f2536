package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url KEY",
		Short: "Print the browse URL of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := appFrom(cmd).URLTracker()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.URLForIssue(args[0]))
			return nil
		},
	}
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key URL",
		Short: "Print the issue key of a browse URL",
		Long: `Print the issue key of a browse URL on the configured host.
Exits with status 2 when URL is not a browse URL of that host.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := appFrom(cmd).URLTracker()
			if err != nil {
				return err
			}
			key, ok := client.IssueKeyFromURL(args[0])
			if !ok {
				return &ExitError{Code: ExitUsage}
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newBelongsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "belongs URL",
		Short: "Report whether a URL points at the configured host",
		Long: `Print "true" and exit 0 when URL starts with the configured host,
otherwise print "false" and exit 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := appFrom(cmd).URLTracker()
			if err != nil {
				return err
			}
			belongs := client.URLBelongsToHost(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), belongs)
			if !belongs {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}
}
