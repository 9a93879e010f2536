package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/source"
	"github.com/nhle/jira-bridge/internal/theme"
)

const displayTimeLayout = "2006-01-02 15:04"

// maxSummaryWidth truncates summaries in list views.
const maxSummaryWidth = 72

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(displayTimeLayout)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderIssues writes a one-row-per-issue table.
func renderIssues(w io.Writer, issues []source.Issue) {
	if len(issues) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No issues."))
		return
	}

	t := theme.Table("KEY", "STATUS", "PRIORITY", "UPDATED", "SUMMARY")
	for _, is := range issues {
		t.Row(
			theme.KeyStyle.Render(is.Key),
			theme.StatusStyle(is.Status).Render(orDash(is.Status)),
			theme.PriorityStyle(is.Priority).Render(orDash(is.Priority)),
			formatTime(is.Updated),
			truncate(is.Summary, maxSummaryWidth),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, theme.HelpStyle.Render(fmt.Sprintf("%d issue(s)", len(issues))))
}

// renderIssue writes the detail view of one issue.
func renderIssue(w io.Writer, is *source.Issue, url string) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(is.Key+"  "+is.Summary))

	field := func(label, value string, style lipgloss.Style) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			theme.LabelStyle.Render(label), style.Render(orDash(value)))
	}
	plain := lipgloss.NewStyle()

	lines := []string{
		field("Status", is.Status, theme.StatusStyle(is.Status)),
		field("Type", is.Type, plain),
		field("Priority", is.Priority, theme.PriorityStyle(is.Priority)),
		field("Project", is.Project, plain),
		field("Assignee", is.Assignee, plain),
		field("Reporter", is.Reporter, plain),
		field("Created", formatTime(is.Created), plain),
		field("Updated", formatTime(is.Updated), plain),
		field("URL", url, theme.HelpStyle),
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))

	if desc := strings.TrimSpace(is.Description); desc != "" {
		fmt.Fprintln(w, theme.DetailPanelStyle.Render(desc))
	}
}

// renderActivity writes the local activity log.
func renderActivity(w io.Writer, entries []model.Activity) {
	if len(entries) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No activity recorded."))
		return
	}

	t := theme.Table("WHEN", "ISSUE", "KIND", "APPLIED", "DETAIL")
	for _, a := range entries {
		applied := theme.SuccessStyle.Render("yes")
		if !a.Applied {
			applied = theme.WarningStyle.Render("no")
		}
		t.Row(
			formatTime(a.CreatedAt),
			theme.KeyStyle.Render(a.IssueKey),
			string(a.Kind),
			applied,
			truncate(strings.ReplaceAll(a.Detail, "\n", " "), maxSummaryWidth),
		)
	}
	fmt.Fprintln(w, t.Render())
}
