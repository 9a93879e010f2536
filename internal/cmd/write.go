package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/app"
	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/theme"
)

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment KEY BODY",
		Short: "Add a comment to an issue",
		Long: `Add a comment to an issue. A BODY of "-" reads the comment from stdin.

Examples:
  jirabridge comment ACME-12 "Fixed in build 431"
  git log -1 --format=%B | jirabridge comment ACME-12 -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, body := args[0], args[1]
			if body == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading comment from stdin: %w", err)
				}
				body = strings.TrimRight(string(raw), "\n")
			}

			a := appFrom(cmd)
			client, err := a.Tracker()
			if err != nil {
				return err
			}

			if err := client.PostComment(cmd.Context(), key, body); err != nil {
				return err
			}
			recordActivity(cmd.Context(), a, model.Activity{
				IssueKey: key,
				Kind:     model.ActivityComment,
				Detail:   body,
				Applied:  true,
			})

			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Commented on "+key))
			return nil
		},
	}
}

func newReopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen KEY",
		Short: "Reopen an issue",
		Long: `Run the issue's reopen transition: the first available workflow action
whose name contains "reopen". When no such action is offered, for example
because the issue is already open, nothing changes and the command succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			a := appFrom(cmd)
			client, err := a.Tracker()
			if err != nil {
				return err
			}

			applied, err := client.Reopen(cmd.Context(), key)
			if err != nil {
				return err
			}

			detail := "reopened"
			if !applied {
				detail = "no reopen action available"
			}
			recordActivity(cmd.Context(), a, model.Activity{
				IssueKey: key,
				Kind:     model.ActivityReopen,
				Detail:   detail,
				Applied:  applied,
			})

			out := cmd.OutOrStdout()
			if applied {
				fmt.Fprintln(out, theme.SuccessStyle.Render("Reopened "+key))
			} else {
				fmt.Fprintln(out, theme.WarningStyle.Render(key+": no reopen action available, left unchanged"))
			}
			return nil
		},
	}
}

// recordActivity appends to the local activity log. The tracker write has
// already happened, so a store failure is only logged.
func recordActivity(ctx context.Context, a *app.App, entry model.Activity) {
	s, err := a.Store()
	if err == nil {
		entry.Host = a.Config.Tracker.Host
		err = s.RecordActivity(ctx, entry)
	}
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("issue", entry.IssueKey).Msg("recording activity")
	}
}
