package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

// searchFields are the Jira fields requested by Search.
var searchFields = []string{"*navigable"}

// Adapter implements source.Transport over the Jira Server/DC REST API v2.
// The session token is the login cookie in "name=value" form.
type Adapter struct {
	opts   source.Options
	log    *logger.Logger
	client *Client
}

// NewAdapter creates a REST transport. The base URL is derived in Open.
func NewAdapter(opts source.Options, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{opts: opts, log: log}
}

// Kind returns source.TransportREST.
func (a *Adapter) Kind() source.TransportKind {
	return source.TransportREST
}

// Open derives the REST base URL from the service descriptor URL. The REST
// API has no descriptor to download, so only the scheme and host (and any
// context path before /rpc/) are kept.
func (a *Adapter) Open(_ context.Context, descriptorURL string, _ bool) error {
	base, err := baseURLFromDescriptor(descriptorURL)
	if err != nil {
		return fmt.Errorf("%w: %v", source.ErrTransport, err)
	}
	a.client = NewClient(base, a.opts.Timeout, a.log)
	return nil
}

// Login creates a server session and returns its cookie.
func (a *Adapter) Login(ctx context.Context, user, password string) (string, error) {
	if a.client == nil {
		return "", errNotOpen
	}

	var resp SessionResponse
	_, err := a.client.Post(
		ctx, "", "/rest/auth/1/session",
		SessionRequest{Username: user, Password: password}, &resp,
	)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden) {
			return "", &source.AuthError{Transport: source.TransportREST, Message: statusErr.Error()}
		}
		return "", classify(err, "")
	}
	if resp.Session.Name == "" || resp.Session.Value == "" {
		return "", &source.AuthError{
			Transport: source.TransportREST,
			Message:   "session response carried no cookie",
		}
	}
	return resp.Session.Name + "=" + resp.Session.Value, nil
}

// Search runs a JQL search. A 400 response means Jira rejected the query.
func (a *Adapter) Search(
	ctx context.Context,
	token, jql string,
	maxResults int32,
) ([]source.Issue, error) {
	if a.client == nil {
		return nil, errNotOpen
	}

	var resp SearchResponse
	_, err := a.client.Post(ctx, token, "/rest/api/2/search", SearchRequest{
		JQL:        jql,
		MaxResults: maxResults,
		Fields:     searchFields,
	}, &resp)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", source.ErrQuery, statusErr.Error())
		}
		return nil, classify(err, "")
	}

	issues := make([]source.Issue, 0, len(resp.Issues))
	for _, raw := range resp.Issues {
		issue, err := decodeIssue(raw)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// GetIssue retrieves a single issue.
func (a *Adapter) GetIssue(ctx context.Context, token, id string) (*source.Issue, error) {
	if a.client == nil {
		return nil, errNotOpen
	}

	raw, err := a.client.Get(ctx, token, issuePath(id), nil)
	if err != nil {
		return nil, classify(err, id)
	}
	issue, err := decodeIssue(raw)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// AddComment posts a new comment to an issue.
func (a *Adapter) AddComment(
	ctx context.Context,
	token, id string,
	comment source.Comment,
) error {
	if a.client == nil {
		return errNotOpen
	}

	_, err := a.client.Post(
		ctx, token, issuePath(id)+"/comment",
		CommentRequest{Body: comment.Body}, nil,
	)
	if err != nil {
		return classify(err, id)
	}
	return nil
}

// GetAvailableActions returns the transitions Jira currently offers for an
// issue, in server order.
func (a *Adapter) GetAvailableActions(
	ctx context.Context,
	token, id string,
) ([]source.Action, error) {
	if a.client == nil {
		return nil, errNotOpen
	}

	var resp TransitionsResponse
	if _, err := a.client.Get(ctx, token, issuePath(id)+"/transitions", &resp); err != nil {
		return nil, classify(err, id)
	}

	actions := make([]source.Action, 0, len(resp.Transitions))
	for _, t := range resp.Transitions {
		actions = append(actions, source.Action{ID: t.ID, Name: t.Name})
	}
	return actions, nil
}

// ProgressWorkflowAction performs a transition. The endpoint returns 204
// No Content, so the issue is not returned.
func (a *Adapter) ProgressWorkflowAction(
	ctx context.Context,
	token, id, actionID string,
	fields []source.FieldValue,
) (*source.Issue, error) {
	if a.client == nil {
		return nil, errNotOpen
	}

	req := TransitionRequest{Transition: TransitionRef{ID: actionID}}
	if len(fields) > 0 {
		req.Fields = make(map[string][]string, len(fields))
		for _, f := range fields {
			req.Fields[f.ID] = f.Values
		}
	}

	if _, err := a.client.Post(ctx, token, issuePath(id)+"/transitions", req, nil); err != nil {
		return nil, classify(err, id)
	}
	return nil, nil
}

var errNotOpen = fmt.Errorf("%w: rest transport used before Open", source.ErrTransport)

// classify maps REST failures onto the source error kinds.
func classify(err error, id string) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	switch statusErr.Status {
	case http.StatusUnauthorized:
		return &source.AuthError{Transport: source.TransportREST, Message: statusErr.Error()}
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", source.ErrNotFound, id, statusErr.Error())
	default:
		return fmt.Errorf("%w: %s", source.ErrTransport, statusErr.Error())
	}
}

func issuePath(id string) string {
	return "/rest/api/2/issue/" + url.PathEscape(id)
}

// decodeIssue converts a raw REST issue into a source.Issue, keeping the
// JSON payload.
func decodeIssue(raw []byte) (source.Issue, error) {
	var issue Issue
	if err := json.Unmarshal(raw, &issue); err != nil {
		return source.Issue{}, fmt.Errorf("%w: decoding issue: %v", source.ErrTransport, err)
	}

	out := source.Issue{
		ID:          issue.ID,
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		Status:      issue.Fields.Status.Name,
		Type:        issue.Fields.IssueType.Name,
		Priority:    issue.Fields.Priority.Name,
		Project:     issue.Fields.Project.Key,
		Created:     parseJiraTime(issue.Fields.Created),
		Updated:     parseJiraTime(issue.Fields.Updated),
		Raw:         append([]byte(nil), raw...),
	}
	if issue.Fields.Assignee != nil {
		out.Assignee = issue.Fields.Assignee.Name
	}
	if issue.Fields.Reporter != nil {
		out.Reporter = issue.Fields.Reporter.Name
	}
	return out, nil
}

// baseURLFromDescriptor strips the SOAP service path from a descriptor URL:
// https://jira.example.com/ctx/rpc/soap/jirasoapservice-v2?wsdl becomes
// https://jira.example.com/ctx.
func baseURLFromDescriptor(descriptorURL string) (string, error) {
	u, err := url.Parse(descriptorURL)
	if err != nil {
		return "", fmt.Errorf("parsing descriptor URL %q: %w", descriptorURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("descriptor URL %q is not absolute", descriptorURL)
	}

	path := u.Path
	if i := strings.Index(path, "/rpc/"); i >= 0 {
		path = path[:i]
	} else {
		path = ""
	}

	return (&url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host, Path: path}).String(), nil
}

// parseJiraTime parses a Jira timestamp string. Jira uses the format
// "2006-01-02T15:04:05.000+0000".
func parseJiraTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05-0700",
		time.RFC3339,
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
