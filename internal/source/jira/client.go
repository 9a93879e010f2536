package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

// Client is a thin HTTP client for the Jira Server/DC REST API v2.
// It authenticates with a session cookie obtained from /rest/auth/1/session
// and decodes Jira error bodies. Requests are never retried.
type Client struct {
	baseURL string
	http    *resty.Client
	log     *logger.Logger
}

// NewClient creates a new Jira HTTP client. The baseURL should be the root
// URL of the Jira instance (e.g., https://jira.corp.example.com).
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		log: log,
	}
}

// Get performs a GET request with the session cookie and unmarshals the
// JSON response into result.
func (c *Client) Get(
	ctx context.Context,
	session string,
	path string,
	result interface{},
) ([]byte, error) {
	return c.do(ctx, http.MethodGet, session, path, nil, result)
}

// Post performs a POST request with a JSON body and unmarshals the JSON
// response into result. A nil result skips decoding.
func (c *Client) Post(
	ctx context.Context,
	session string,
	path string,
	body interface{},
	result interface{},
) ([]byte, error) {
	return c.do(ctx, http.MethodPost, session, path, body, result)
}

// do builds the request, attaches the session cookie, maps HTTP failures
// to *StatusError and decodes the JSON response.
func (c *Client) do(
	ctx context.Context,
	method string,
	session string,
	path string,
	body interface{},
	result interface{},
) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if session != "" {
		req.SetHeader("Cookie", session)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: executing request %s %s: %v",
			source.ErrTransport, method, path, err,
		)
	}

	c.log.Trace().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Msg("jira rest call")

	respBody := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, newStatusError(method, path, resp.StatusCode(), respBody)
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode() == http.StatusNoContent {
		return respBody, nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return nil, fmt.Errorf(
			"%w: unmarshaling response from %s %s: %v",
			source.ErrTransport, method, path, err,
		)
	}

	return respBody, nil
}

// StatusError is a non-2xx REST response.
type StatusError struct {
	Method   string
	Path     string
	Status   int
	Messages []string
	Body     string
}

func (e *StatusError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf(
			"jira API error (%d) on %s %s: %s",
			e.Status, e.Method, e.Path, strings.Join(e.Messages, "; "),
		)
	}
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.Status, e.Method, e.Path, e.Body,
	)
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	e := &StatusError{Method: method, Path: path, Status: status}

	var jiraErr ErrorResponse
	if json.Unmarshal(body, &jiraErr) == nil {
		e.Messages = append(e.Messages, jiraErr.ErrorMessages...)
		for _, field := range slices.Sorted(maps.Keys(jiraErr.Errors)) {
			e.Messages = append(e.Messages, field+": "+jiraErr.Errors[field])
		}
	}
	if len(e.Messages) == 0 {
		e.Body = strings.TrimSpace(string(body))
		if e.Body == "" {
			e.Body = http.StatusText(status)
		}
	}
	return e
}
