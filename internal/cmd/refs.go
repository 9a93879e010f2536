package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/crossref"
	"github.com/nhle/jira-bridge/internal/source"
)

func newRefsCmd() *cobra.Command {
	var fetch bool

	c := &cobra.Command{
		Use:   "refs [FILE|-]",
		Short: "List the issues a text refers to",
		Long: `Print the issue keys referenced in a text: bare keys such as ACME-12 and
browse URLs of the configured host. The text is read from FILE, or from
stdin when FILE is "-" or omitted.

Examples:
  git log -1 --format=%B | jirabridge refs
  jirabridge refs --fetch RELEASE_NOTES.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			raw, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("reading text: %w", err)
			}

			a := appFrom(cmd)
			urls, err := a.URLTracker()
			if err != nil {
				return err
			}
			keys := crossref.Extract(string(raw), urls.IssueKeyFromURL)

			if !fetch {
				if len(keys) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Join(keys, "\n"))
				}
				return nil
			}

			client, err := a.Tracker()
			if err != nil {
				return err
			}
			issues := make([]source.Issue, 0, len(keys))
			for _, key := range keys {
				issue, err := client.FetchIssue(cmd.Context(), key)
				if err != nil {
					// Keys that look right but do not exist are common in
					// free text; skip them.
					if errors.Is(err, source.ErrNotFound) {
						a.Log.Debug().Str("issue", key).Msg("referenced issue not found")
						continue
					}
					return err
				}
				issues = append(issues, *issue)
			}
			renderIssues(cmd.OutOrStdout(), issues)
			return nil
		},
	}

	c.Flags().BoolVar(&fetch, "fetch", false, "Fetch each referenced issue and show it")
	return c
}
