package jira

import "encoding/json"

// SessionRequest is the body of POST /rest/auth/1/session.
type SessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is the response from POST /rest/auth/1/session.
type SessionResponse struct {
	Session SessionCookie `json:"session"`
}

// SessionCookie names the cookie that carries the login session.
type SessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SearchRequest is the body of POST /rest/api/2/search.
type SearchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int32    `json:"maxResults"`
	Fields     []string `json:"fields,omitempty"`
}

// SearchResponse is the response from POST /rest/api/2/search.
type SearchResponse struct {
	StartAt    int               `json:"startAt"`
	MaxResults int               `json:"maxResults"`
	Total      int               `json:"total"`
	Issues     []json.RawMessage `json:"issues"`
}

// Issue represents a single Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the standard fields of a Jira issue.
type IssueFields struct {
	Summary     string  `json:"summary"`
	Status      Named   `json:"status"`
	Priority    Named   `json:"priority"`
	IssueType   Named   `json:"issuetype"`
	Assignee    *User   `json:"assignee"`
	Reporter    *User   `json:"reporter"`
	Project     Project `json:"project"`
	Created     string  `json:"created"`
	Updated     string  `json:"updated"`
	Description string  `json:"description,omitempty"`
}

// Named is any Jira object identified by id and name (status, priority,
// issue type).
type Named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User represents a Jira user.
type User struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Project represents a Jira project.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Transition represents a possible status transition for a Jira issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransitionsResponse wraps the list of transitions returned by the API.
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// TransitionRequest is the body of POST /rest/api/2/issue/{id}/transitions.
type TransitionRequest struct {
	Transition TransitionRef       `json:"transition"`
	Fields     map[string][]string `json:"fields,omitempty"`
}

// TransitionRef identifies the transition to perform.
type TransitionRef struct {
	ID string `json:"id"`
}

// CommentRequest is the body of POST /rest/api/2/issue/{id}/comment.
type CommentRequest struct {
	Body string `json:"body"`
}

// ErrorResponse is the standard Jira error response format.
type ErrorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
