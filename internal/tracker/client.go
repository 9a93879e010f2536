// Package tracker is the issue tracker client: a lazily authenticated
// session over a source.Transport plus the browse-URL helpers.
package tracker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

// MaxIssues is the result ceiling sent with every search. The effective
// limit is whatever the server's jira.search.views.max.limit allows.
const MaxIssues int32 = math.MaxInt32

// queryTimeLayout is the "updated" clause format Jira accepts in JQL.
const queryTimeLayout = "2006-01-02 15:04"

const browsePath = "/browse/"

// Config is the immutable client configuration. Nothing is validated here;
// bad values surface when an operation runs.
type Config struct {
	// Host is the tracker base URL without a trailing slash.
	Host string

	// WSDLPath is appended to Host to locate the service description.
	WSDLPath string

	User     string
	Password string

	// Query is the base JQL every search starts from.
	Query string

	// Location is the zone timestamps are rendered in for JQL. Nil means
	// time.Local.
	Location *time.Location
}

// Client talks to the issue tracker through a Transport. The session is
// established on first use and kept for the lifetime of the Client.
type Client struct {
	cfg       Config
	transport source.Transport
	log       *logger.Logger

	mu        sync.Mutex
	connected bool
	token     string
	connErr   error
}

// New creates a Client. It does not touch the network. A nil transport
// leaves only the URL helpers usable; every remote operation fails with
// source.ErrTransport.
func New(cfg Config, transport source.Transport, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		log:       log.WithField("client", uuid.NewString()),
	}
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// connect opens the transport and logs in once. A failed login is
// remembered and returned to every later caller without another attempt.
func (c *Client) connect(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return c.token, c.connErr
	}
	if c.transport == nil {
		return "", fmt.Errorf("%w: no transport configured", source.ErrTransport)
	}

	descriptor := c.cfg.Host + c.cfg.WSDLPath
	c.log.Debug().
		Str("transport", string(c.transport.Kind())).
		Str("descriptor", descriptor).
		Str("user", c.cfg.User).
		Msg("connecting")

	if err := c.transport.Open(ctx, descriptor, true); err != nil {
		// Nothing was sent to the login endpoint; allow a later attempt.
		return "", fmt.Errorf("opening %s: %w", descriptor, err)
	}

	token, err := c.transport.Login(ctx, c.cfg.User, c.cfg.Password)
	c.connected = true
	if err != nil {
		c.log.Warn().Err(err).Str("user", c.cfg.User).Msg("login failed")
		c.connErr = fmt.Errorf("logging in as %s: %w", c.cfg.User, err)
		return "", c.connErr
	}

	c.token = token
	c.log.Debug().Msg("session established")
	return token, nil
}

// Connect establishes the session now instead of on first use.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connect(ctx)
	return err
}

// BuildQuery returns the base query, with an "updated since" clause when
// since is non-nil. The base query is trusted configuration and is not
// escaped.
func (c *Client) BuildQuery(since *time.Time) string {
	if since == nil {
		return c.cfg.Query
	}
	return c.cfg.Query + " AND updated > '" + since.In(c.cfg.Location).Format(queryTimeLayout) + "'"
}

// FetchIssues returns every issue matching the base query, restricted to
// issues updated after since when it is non-nil.
func (c *Client) FetchIssues(ctx context.Context, since *time.Time) ([]source.Issue, error) {
	token, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	jql := c.BuildQuery(since)
	c.log.Debug().Str("jql", jql).Msg("searching issues")

	issues, err := c.transport.Search(ctx, token, jql, MaxIssues)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", jql, err)
	}
	return issues, nil
}

// FetchIssue returns a single issue by key.
func (c *Client) FetchIssue(ctx context.Context, id string) (*source.Issue, error) {
	token, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("issue", id).Msg("fetching issue")
	issue, err := c.transport.GetIssue(ctx, token, id)
	if err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", id, err)
	}
	return issue, nil
}

// PostComment appends a comment to an issue.
func (c *Client) PostComment(ctx context.Context, id, body string) error {
	token, err := c.connect(ctx)
	if err != nil {
		return err
	}

	c.log.Debug().Str("issue", id).Msg("posting comment")
	if err := c.transport.AddComment(ctx, token, id, source.Comment{Body: body}); err != nil {
		return fmt.Errorf("commenting on %s: %w", id, err)
	}
	return nil
}

// ReopenIssue runs the issue's reopen transition. When the workflow offers
// no reopen action (the issue is already open, or the workflow has none)
// nothing happens and no error is returned.
func (c *Client) ReopenIssue(ctx context.Context, id string) error {
	_, err := c.Reopen(ctx, id)
	return err
}

// Reopen is ReopenIssue that also reports whether a transition was run.
func (c *Client) Reopen(ctx context.Context, id string) (bool, error) {
	token, err := c.connect(ctx)
	if err != nil {
		return false, err
	}

	actionID, ok, err := c.resolveReopenAction(ctx, token, id)
	if err != nil {
		return false, err
	}
	if !ok {
		c.log.Debug().Str("issue", id).Msg("no reopen action available")
		return false, nil
	}

	c.log.Debug().Str("issue", id).Str("action", actionID).Msg("reopening issue")
	if _, err := c.transport.ProgressWorkflowAction(ctx, token, id, actionID, nil); err != nil {
		return false, fmt.Errorf("reopening %s: %w", id, err)
	}
	return true, nil
}

// resolveReopenAction returns the first action, in server order, whose
// name contains "reopen" in any case.
func (c *Client) resolveReopenAction(ctx context.Context, token, id string) (string, bool, error) {
	actions, err := c.transport.GetAvailableActions(ctx, token, id)
	if err != nil {
		return "", false, fmt.Errorf("listing actions for %s: %w", id, err)
	}

	for _, a := range actions {
		if strings.Contains(strings.ToLower(a.Name), "reopen") {
			return a.ID, true, nil
		}
	}
	return "", false, nil
}

// IssueKeyFromURL returns the issue key of a browse URL on this host.
// ok is false when url is not under Host + "/browse/".
func (c *Client) IssueKeyFromURL(url string) (string, bool) {
	prefix := c.cfg.Host + browsePath
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return url[len(prefix):], true
}

// URLForIssue returns the browse URL of an issue.
func (c *Client) URLForIssue(id string) string {
	return c.cfg.Host + browsePath + id
}

// URLBelongsToHost reports whether url starts with Host. The comparison is
// a case-sensitive prefix match with no normalisation.
func (c *Client) URLBelongsToHost(url string) bool {
	return strings.HasPrefix(url, c.cfg.Host)
}
