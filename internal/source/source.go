package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

//go:generate mockgen -source=source.go -destination=../mock/transport_mock.go -package=mock

// Error kinds surfaced by every transport. Transports wrap one of these
// with fmt.Errorf("%w: ...") so callers can match with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrTransport      = errors.New("transport failure")
	ErrQuery          = errors.New("query rejected")
	ErrNotFound       = errors.New("issue not found")
)

// AuthError indicates that the remote service rejected the credentials.
// It matches ErrAuthentication through errors.Is.
type AuthError struct {
	Transport TransportKind
	Message   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Transport, e.Message)
}

// Is lets errors.Is(err, ErrAuthentication) match an *AuthError.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthentication
}

// IsAuthError reports whether err (or any error in its chain) is an
// authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// TransportKind identifies a concrete Transport implementation.
type TransportKind string

const (
	TransportSOAP TransportKind = "soap"
	TransportREST TransportKind = "rest"
)

// ParseTransportKind converts a configuration value into a TransportKind.
func ParseTransportKind(s string) (TransportKind, error) {
	switch TransportKind(s) {
	case TransportSOAP, "":
		return TransportSOAP, nil
	case TransportREST:
		return TransportREST, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want %q or %q)", s, TransportSOAP, TransportREST)
	}
}

// Options configures a Transport before it is opened.
type Options struct {
	// Timeout bounds every remote call. Zero means the transport default.
	Timeout time.Duration
}

// Issue is a remote issue as returned by the service. The common fields are
// decoded; Raw holds the untouched payload.
type Issue struct {
	ID          string
	Key         string
	Summary     string
	Description string
	Status      string
	Type        string
	Priority    string
	Assignee    string
	Reporter    string
	Project     string
	Created     time.Time
	Updated     time.Time

	// Raw is the issue exactly as the service sent it (XML for SOAP, JSON for REST).
	Raw []byte
}

// Action is a workflow transition currently available on an issue.
type Action struct {
	ID   string
	Name string
}

// Comment is the payload of a new issue comment.
type Comment struct {
	Body string
}

// FieldValue sets a field during a workflow transition.
type FieldValue struct {
	ID     string
	Values []string
}

// Transport is the remote-procedure capability the issue tracker client is
// built on. Every call after Login takes the token Login returned.
type Transport interface {
	// Kind returns the transport identifier.
	Kind() TransportKind

	// Open prepares the transport against the service description at
	// descriptorURL. With trace set the transport keeps the last exchange.
	Open(ctx context.Context, descriptorURL string, trace bool) error

	// Login authenticates and returns an opaque session token.
	Login(ctx context.Context, user, password string) (string, error)

	// Search runs a JQL query returning at most maxResults issues.
	Search(ctx context.Context, token, jql string, maxResults int32) ([]Issue, error)

	// GetIssue fetches a single issue by key or id.
	GetIssue(ctx context.Context, token, id string) (*Issue, error)

	// AddComment appends a comment to an issue.
	AddComment(ctx context.Context, token, id string, comment Comment) error

	// GetAvailableActions lists the workflow actions in server order.
	GetAvailableActions(ctx context.Context, token, id string) ([]Action, error)

	// ProgressWorkflowAction executes a workflow action on an issue.
	ProgressWorkflowAction(
		ctx context.Context,
		token, id, actionID string,
		fields []FieldValue,
	) (*Issue, error)
}
