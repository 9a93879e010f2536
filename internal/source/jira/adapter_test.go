package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

const descriptorPath = "/rpc/soap/jirasoapservice-v2?wsdl"

func newTestAdapter(t *testing.T, mux *http.ServeMux) *Adapter {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewAdapter(source.Options{Timeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, a.Open(context.Background(), srv.URL+descriptorPath, false))
	return a
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestBaseURLFromDescriptor(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://jira.example.com/rpc/soap/jirasoapservice-v2?wsdl", "https://jira.example.com"},
		{"https://example.com/jira/rpc/soap/jirasoapservice-v2?wsdl", "https://example.com/jira"},
		{"http://localhost:8080/somewhere/else", "http://localhost:8080"},
	}
	for _, tc := range cases {
		got, err := baseURLFromDescriptor(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := baseURLFromDescriptor("/relative/path")
	assert.Error(t, err)
}

func TestLogin_ReturnsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/auth/1/session", func(w http.ResponseWriter, r *http.Request) {
		var req SessionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "behat" || req.Password != "secret" {
			respond(w, http.StatusUnauthorized, ErrorResponse{ErrorMessages: []string{"Login failed"}})
			return
		}
		respond(w, http.StatusOK, SessionResponse{Session: SessionCookie{Name: "JSESSIONID", Value: "abc"}})
	})
	a := newTestAdapter(t, mux)

	token, err := a.Login(context.Background(), "behat", "secret")
	require.NoError(t, err)
	assert.Equal(t, "JSESSIONID=abc", token)

	_, err = a.Login(context.Background(), "behat", "wrong")
	assert.True(t, source.IsAuthError(err))
	assert.Contains(t, err.Error(), "Login failed")
}

func TestLogin_BeforeOpen(t *testing.T) {
	a := NewAdapter(source.Options{}, nil)
	_, err := a.Login(context.Background(), "behat", "secret")
	assert.ErrorIs(t, err, source.ErrTransport)
}

func TestSearch_SendsCookieAndCeiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JSESSIONID=abc", r.Header.Get("Cookie"))

		var req SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "project = ACME", req.JQL)
		assert.Equal(t, int32(2147483647), req.MaxResults)

		respond(w, http.StatusOK, map[string]any{
			"issues": []any{
				map[string]any{
					"id":  "10001",
					"key": "ACME-1",
					"fields": map[string]any{
						"summary":  "Build fails on ARM",
						"status":   map[string]string{"name": "Reopened"},
						"assignee": map[string]string{"name": "behat"},
						"project":  map[string]string{"key": "ACME"},
						"updated":  "2024-03-01T09:30:00.000+0000",
					},
				},
			},
		})
	})
	a := newTestAdapter(t, mux)

	issues, err := a.Search(context.Background(), "JSESSIONID=abc", "project = ACME", 2147483647)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "ACME-1", issues[0].Key)
	assert.Equal(t, "Reopened", issues[0].Status)
	assert.Equal(t, "behat", issues[0].Assignee)
	assert.Equal(t, "ACME", issues[0].Project)
	assert.True(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).Equal(issues[0].Updated))
	assert.NotEmpty(t, issues[0].Raw)
}

func TestSearch_BadRequestIsQueryError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusBadRequest, ErrorResponse{
			ErrorMessages: []string{"Field 'bogus' does not exist"},
		})
	})
	a := newTestAdapter(t, mux)

	_, err := a.Search(context.Background(), "c", "bogus = 1", 10)
	require.ErrorIs(t, err, source.ErrQuery)
	assert.Contains(t, err.Error(), "Field 'bogus' does not exist")
}

func TestGetIssue_StatusMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/{key}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("key") {
		case "ACME-404":
			respond(w, http.StatusNotFound, ErrorResponse{ErrorMessages: []string{"Issue Does Not Exist"}})
		case "ACME-401":
			respond(w, http.StatusUnauthorized, nil)
		case "ACME-500":
			respond(w, http.StatusInternalServerError, nil)
		default:
			respond(w, http.StatusOK, map[string]any{"id": "1", "key": r.PathValue("key")})
		}
	})
	a := newTestAdapter(t, mux)
	ctx := context.Background()

	issue, err := a.GetIssue(ctx, "c", "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, "ACME-1", issue.Key)

	_, err = a.GetIssue(ctx, "c", "ACME-404")
	assert.ErrorIs(t, err, source.ErrNotFound)

	_, err = a.GetIssue(ctx, "c", "ACME-401")
	assert.True(t, source.IsAuthError(err))

	_, err = a.GetIssue(ctx, "c", "ACME-500")
	assert.ErrorIs(t, err, source.ErrTransport)
}

func TestTransitions(t *testing.T) {
	var posted TransitionRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/2/issue/{key}/transitions", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, TransitionsResponse{Transitions: []Transition{
			{ID: "5", Name: "Resolve Issue"},
			{ID: "3", Name: "Reopen Issue"},
		}})
	})
	mux.HandleFunc("POST /rest/api/2/issue/{key}/transitions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusNoContent)
	})
	a := newTestAdapter(t, mux)
	ctx := context.Background()

	actions, err := a.GetAvailableActions(ctx, "c", "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, []source.Action{{ID: "5", Name: "Resolve Issue"}, {ID: "3", Name: "Reopen Issue"}}, actions)

	issue, err := a.ProgressWorkflowAction(ctx, "c", "ACME-1", "3", nil)
	require.NoError(t, err)
	assert.Nil(t, issue)
	assert.Equal(t, "3", posted.Transition.ID)
	assert.Empty(t, posted.Fields)
}

func TestAddComment(t *testing.T) {
	var got CommentRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/api/2/issue/{key}/comment", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ACME-1", r.PathValue("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respond(w, http.StatusCreated, map[string]string{"id": "100"})
	})
	a := newTestAdapter(t, mux)

	require.NoError(t, a.AddComment(context.Background(), "c", "ACME-1", source.Comment{Body: "Fixed"}))
	assert.Equal(t, "Fixed", got.Body)
}

func TestStatusError_MessagesAreSorted(t *testing.T) {
	body, _ := json.Marshal(ErrorResponse{
		ErrorMessages: []string{"first"},
		Errors:        map[string]string{"zeta": "z", "alpha": "a"},
	})
	err := newStatusError(http.MethodPost, "/rest/api/2/search", http.StatusBadRequest, body)
	assert.Equal(t, []string{"first", "alpha: a", "zeta: z"}, err.Messages)
}
