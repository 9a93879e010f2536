package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/store"
)

func newActivityCmd() *cobra.Command {
	var (
		issueKey string
		kind     string
		limit    int
	)

	c := &cobra.Command{
		Use:   "activity",
		Short: "Show comments and reopens sent from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ActivityFilter{Limit: limit}
			if issueKey != "" {
				filter.IssueKey = &issueKey
			}
			if kind != "" {
				k := model.ActivityKind(kind)
				if k != model.ActivityComment && k != model.ActivityReopen {
					return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown kind %q: want comment or reopen", kind)}
				}
				filter.Kind = &k
			}

			s, err := appFrom(cmd).Store()
			if err != nil {
				return err
			}
			entries, err := s.ListActivity(cmd.Context(), filter)
			if err != nil {
				return err
			}
			renderActivity(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	c.Flags().StringVar(&issueKey, "issue", "", "Only entries for this issue key")
	c.Flags().StringVar(&kind, "kind", "", "Only entries of this kind: comment or reopen")
	c.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return c
}
