package soap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

// Operation names of the jirasoapservice-v2 RPC service.
const (
	opLogin                  = "login"
	opGetIssuesFromJqlSearch = "getIssuesFromJqlSearch"
	opGetIssue               = "getIssue"
	opAddComment             = "addComment"
	opGetAvailableActions    = "getAvailableActions"
	opProgressWorkflowAction = "progressWorkflowAction"
)

// Transport implements source.Transport over the Jira SOAP RPC service.
type Transport struct {
	client *Client
}

// New creates a SOAP transport. It does nothing on the network until Open.
func New(opts source.Options, log *logger.Logger) *Transport {
	return &Transport{client: NewClient(opts.Timeout, log)}
}

// Kind returns source.TransportSOAP.
func (t *Transport) Kind() source.TransportKind {
	return source.TransportSOAP
}

// LastExchange returns the last traced request/response pair.
func (t *Transport) LastExchange() Exchange {
	return t.client.LastExchange()
}

// Open discovers the service endpoint from the WSDL at descriptorURL.
func (t *Transport) Open(ctx context.Context, descriptorURL string, trace bool) error {
	return t.client.Discover(ctx, descriptorURL, trace)
}

// Login calls login(user, password) and returns the session token.
func (t *Transport) Login(ctx context.Context, user, password string) (string, error) {
	resp, res, err := t.client.call(ctx, opLogin, user, password)
	if err != nil {
		return "", classify(opLogin, "", err)
	}

	token := res.field(resp, "loginReturn")
	if token == "" {
		if ret := firstChild(resp); ret != nil {
			token = res.deref(ret).text()
		}
	}
	if token == "" {
		return "", &source.AuthError{
			Transport: source.TransportSOAP,
			Message:   "login returned an empty token",
		}
	}
	return token, nil
}

// Search calls getIssuesFromJqlSearch(token, jql, maxResults).
func (t *Transport) Search(
	ctx context.Context,
	token, jql string,
	maxResults int32,
) ([]source.Issue, error) {
	resp, res, err := t.client.call(ctx, opGetIssuesFromJqlSearch, token, jql, maxResults)
	if err != nil {
		return nil, classify(opGetIssuesFromJqlSearch, "", err)
	}

	items := res.items(firstChild(resp))
	issues := make([]source.Issue, 0, len(items))
	for _, n := range items {
		issues = append(issues, decodeIssue(res, n))
	}
	return issues, nil
}

// GetIssue calls getIssue(token, id).
func (t *Transport) GetIssue(ctx context.Context, token, id string) (*source.Issue, error) {
	resp, res, err := t.client.call(ctx, opGetIssue, token, id)
	if err != nil {
		return nil, classify(opGetIssue, id, err)
	}

	ret := res.deref(firstChild(resp))
	if ret == nil || ret.isNil() {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, id)
	}
	issue := decodeIssue(res, ret)
	return &issue, nil
}

// AddComment calls addComment(token, id, RemoteComment{body}).
func (t *Transport) AddComment(
	ctx context.Context,
	token, id string,
	comment source.Comment,
) error {
	_, _, err := t.client.call(ctx, opAddComment, token, id, remoteComment{Body: comment.Body})
	if err != nil {
		return classify(opAddComment, id, err)
	}
	return nil
}

// GetAvailableActions calls getAvailableActions(token, id) and keeps the
// server order.
func (t *Transport) GetAvailableActions(
	ctx context.Context,
	token, id string,
) ([]source.Action, error) {
	resp, res, err := t.client.call(ctx, opGetAvailableActions, token, id)
	if err != nil {
		return nil, classify(opGetAvailableActions, id, err)
	}

	items := res.items(firstChild(resp))
	actions := make([]source.Action, 0, len(items))
	for _, n := range items {
		actions = append(actions, source.Action{
			ID:   res.field(n, "id"),
			Name: res.field(n, "name"),
		})
	}
	return actions, nil
}

// ProgressWorkflowAction calls progressWorkflowAction(token, id, actionID, fields).
func (t *Transport) ProgressWorkflowAction(
	ctx context.Context,
	token, id, actionID string,
	fields []source.FieldValue,
) (*source.Issue, error) {
	resp, res, err := t.client.call(ctx, opProgressWorkflowAction, token, id, actionID, newFieldValueArray(fields))
	if err != nil {
		return nil, classify(opProgressWorkflowAction, id, err)
	}

	ret := res.deref(firstChild(resp))
	if ret == nil || ret.isNil() {
		return nil, nil
	}
	issue := decodeIssue(res, ret)
	return &issue, nil
}

// classify maps a call failure onto the source error kinds.
func classify(op, id string, err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return &source.AuthError{
			Transport: source.TransportSOAP,
			Message:   fmt.Sprintf("%s rejected with %s", op, statusErr),
		}
	}

	var fault *Fault
	if !errors.As(err, &fault) {
		return err
	}

	msg := fault.String
	switch {
	case strings.Contains(msg, "RemoteAuthenticationException"):
		return &source.AuthError{Transport: source.TransportSOAP, Message: msg}
	case op == opLogin:
		return &source.AuthError{Transport: source.TransportSOAP, Message: msg}
	case op == opGetIssuesFromJqlSearch:
		return fmt.Errorf("%w: %s", source.ErrQuery, msg)
	case isMissingIssue(msg):
		return fmt.Errorf("%w: %s: %s", source.ErrNotFound, id, msg)
	default:
		return fmt.Errorf("%w: %s: %s", source.ErrTransport, op, fault.Error())
	}
}

// isMissingIssue reports whether a fault describes an unknown issue. Jira
// reports missing issues and issues the user cannot see the same way.
func isMissingIssue(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "does not exist") ||
		strings.Contains(msg, "RemotePermissionException")
}

// firstChild returns the first element inside an RPC response wrapper,
// e.g. <getIssueReturn> inside <getIssueResponse>.
func firstChild(n *node) *node {
	if n == nil || len(n.Nodes) == 0 {
		return nil
	}
	return &n.Nodes[0]
}

func decodeIssue(res *resolver, n *node) source.Issue {
	return source.Issue{
		ID:          res.field(n, "id"),
		Key:         res.field(n, "key"),
		Summary:     res.field(n, "summary"),
		Description: res.field(n, "description"),
		Status:      res.field(n, "status"),
		Type:        res.field(n, "type"),
		Priority:    res.field(n, "priority"),
		Assignee:    res.field(n, "assignee"),
		Reporter:    res.field(n, "reporter"),
		Project:     res.field(n, "project"),
		Created:     parseDateTime(res.field(n, "created")),
		Updated:     parseDateTime(res.field(n, "updated")),
		Raw:         append([]byte(nil), n.Inner...),
	}
}

// parseDateTime parses an xsd:dateTime as sent by the service.
func parseDateTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05Z0700",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
