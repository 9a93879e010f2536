package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/source"
	appsync "github.com/nhle/jira-bridge/internal/sync"
)

func newIssuesCmd() *cobra.Command {
	var (
		since       string
		incremental bool
	)

	c := &cobra.Command{
		Use:   "issues",
		Short: "List issues matching the configured query",
		Long: `List every issue matching the configured JQL query.

With --since only issues updated after the given time are listed. With
--incremental the time of the last incremental run is used instead, and
advanced once the fetch succeeds.

Examples:
  jirabridge issues
  jirabridge issues --since 2024-03-01T09:00:00Z
  jirabridge issues --incremental`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" && incremental {
				return &ExitError{Code: ExitUsage, Err: errors.New("--since and --incremental are mutually exclusive")}
			}

			a := appFrom(cmd)
			client, err := a.Tracker()
			if err != nil {
				return err
			}

			if incremental {
				s, err := a.Store()
				if err != nil {
					return err
				}
				p := appsync.New(client, s, appsync.Config{
					Host:  client.Config().Host,
					Query: client.Config().Query,
				}, func(_ context.Context, issues []source.Issue) error {
					renderIssues(cmd.OutOrStdout(), issues)
					return nil
				}, a.Log)
				_, err = p.RunOnce(cmd.Context())
				return err
			}

			var sinceTime *time.Time
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return &ExitError{Code: ExitUsage, Err: fmt.Errorf("parsing --since: %w", err)}
				}
				sinceTime = &t
			}

			issues, err := client.FetchIssues(cmd.Context(), sinceTime)
			if err != nil {
				return err
			}
			renderIssues(cmd.OutOrStdout(), issues)
			return nil
		},
	}

	c.Flags().StringVar(&since, "since", "", "Only issues updated after this RFC3339 time")
	c.Flags().BoolVar(&incremental, "incremental", false, "Only issues updated since the last incremental run")
	return c
}

func newIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue KEY",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := appFrom(cmd).Tracker()
			if err != nil {
				return err
			}

			issue, err := client.FetchIssue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderIssue(cmd.OutOrStdout(), issue, client.URLForIssue(issue.Key))
			return nil
		},
	}
}
