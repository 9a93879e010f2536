package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/jira-bridge/internal/source"
	appsync "github.com/nhle/jira-bridge/internal/sync"
	"github.com/nhle/jira-bridge/internal/theme"
)

func newWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		reset    bool
	)

	c := &cobra.Command{
		Use:   "watch",
		Short: "Poll for issues updated since the last run",
		Long: `Poll the configured query and print each issue as it changes. The time
of the last successful poll is kept in the local database, so restarting
watch picks up where it stopped. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			client, err := a.Tracker()
			if err != nil {
				return err
			}
			s, err := a.Store()
			if err != nil {
				return err
			}

			cfg := appsync.Config{
				Host:     client.Config().Host,
				Query:    client.Config().Query,
				Interval: a.Config.Sync.PollInterval(),
			}
			if interval > 0 {
				cfg.Interval = interval
			}

			if reset {
				if err := s.DeleteCursor(cmd.Context(), cfg.Host, cfg.Query); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			p := appsync.New(client, s, cfg, func(_ context.Context, issues []source.Issue) error {
				for _, is := range issues {
					fmt.Fprintf(out, "%s  %s  %s  %s\n",
						formatTime(is.Updated),
						theme.KeyStyle.Render(is.Key),
						theme.StatusStyle(is.Status).Render(orDash(is.Status)),
						is.Summary,
					)
				}
				return nil
			}, a.Log)

			a.Log.Info().
				Dur("interval", cfg.Interval).
				Str("query", cfg.Query).
				Msg("watching for updates")
			return p.Run(cmd.Context())
		},
	}

	c.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from config)")
	c.Flags().BoolVar(&reset, "reset", false, "Forget the last poll time and fetch everything first")
	return c
}
