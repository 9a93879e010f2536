package tracker

import (
	"fmt"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
	"github.com/nhle/jira-bridge/internal/source/jira"
	"github.com/nhle/jira-bridge/internal/source/soap"
)

// NewTransport builds the Transport implementation registered for kind.
func NewTransport(kind source.TransportKind, opts source.Options, log *logger.Logger) (source.Transport, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithField("transport", string(kind))

	switch kind {
	case source.TransportSOAP:
		return soap.New(opts, log), nil
	case source.TransportREST:
		return jira.NewAdapter(opts, log), nil
	default:
		return nil, fmt.Errorf("unsupported transport %q", kind)
	}
}
