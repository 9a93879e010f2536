package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

// Client posts RPC-style SOAP 1.1 envelopes to a single endpoint and decodes
// the responses into node trees.
type Client struct {
	http *resty.Client
	log  *logger.Logger

	endpoint string
	trace    bool

	mu   sync.Mutex
	last Exchange
}

// NewClient creates a SOAP client with the given per-call timeout.
func NewClient(timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http: resty.New().SetTimeout(timeout),
		log:  log,
	}
}

// Endpoint returns the URL envelopes are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// LastExchange returns the most recent traced exchange. It is empty unless
// tracing was enabled in Discover.
func (c *Client) LastExchange() Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Discover downloads the WSDL at wsdlURL and takes the service endpoint from
// its soap:address. When the document declares none, the WSDL URL without
// its query string is used.
func (c *Client) Discover(ctx context.Context, wsdlURL string, trace bool) error {
	c.trace = trace

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/xml").
		Get(wsdlURL)
	if err != nil {
		return fmt.Errorf("%w: fetching WSDL %s: %v", source.ErrTransport, wsdlURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf(
			"%w: fetching WSDL %s: unexpected status %d",
			source.ErrTransport, wsdlURL, resp.StatusCode(),
		)
	}

	var defs wsdlDefinitions
	if err := xml.Unmarshal(resp.Body(), &defs); err != nil {
		return fmt.Errorf("%w: parsing WSDL %s: %v", source.ErrTransport, wsdlURL, err)
	}

	endpoint := ""
	for _, svc := range defs.Services {
		for _, port := range svc.Ports {
			if port.Address.Location != "" {
				endpoint = port.Address.Location
				break
			}
		}
		if endpoint != "" {
			break
		}
	}
	if endpoint == "" {
		endpoint = stripQuery(wsdlURL)
	}

	c.endpoint = endpoint
	c.log.Debug().Str("wsdl", wsdlURL).Str("endpoint", endpoint).Msg("soap endpoint discovered")
	return nil
}

// call invokes operation with positional arguments in0..inN and returns the
// first element of the response body. A SOAP fault is returned as *Fault.
func (c *Client) call(ctx context.Context, operation string, args ...any) (*node, *resolver, error) {
	if c.endpoint == "" {
		return nil, nil, fmt.Errorf("%w: %s called before the endpoint was discovered", source.ErrTransport, operation)
	}

	payload, err := encodeEnvelope(operation, args)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding %s request: %v", source.ErrTransport, operation, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", `""`).
		SetBody(payload).
		Post(c.endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", source.ErrTransport, operation, err)
	}

	body := resp.Body()
	if c.trace {
		c.mu.Lock()
		c.last = Exchange{Operation: operation, Request: payload, Response: body}
		c.mu.Unlock()
		c.log.Trace().
			Str("op", operation).
			Bytes("request", payload).
			Bytes("response", body).
			Msg("soap exchange")
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return nil, nil, &httpStatusError{Status: resp.StatusCode()}
	}

	var env responseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		if resp.StatusCode() >= http.StatusBadRequest {
			return nil, nil, fmt.Errorf(
				"%w: %s: unexpected status %d", source.ErrTransport, operation, resp.StatusCode(),
			)
		}
		return nil, nil, fmt.Errorf("%w: decoding %s response: %v", source.ErrTransport, operation, err)
	}

	res := newResolver(&env.Body)
	var first *node
	for i := range env.Body.Nodes {
		n := &env.Body.Nodes[i]
		if n.XMLName.Local == "multiRef" {
			continue
		}
		first = n
		break
	}
	if first == nil {
		return nil, nil, fmt.Errorf("%w: %s: empty response body", source.ErrTransport, operation)
	}

	if first.XMLName.Local == "Fault" {
		return nil, nil, decodeFault(first)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, nil, fmt.Errorf(
			"%w: %s: unexpected status %d", source.ErrTransport, operation, resp.StatusCode(),
		)
	}

	return first, res, nil
}

// httpStatusError carries an HTTP status the SOAP layer could not interpret.
type httpStatusError struct {
	Status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Status)
}

func decodeFault(n *node) *Fault {
	f := &Fault{}
	if c := n.child("faultcode"); c != nil {
		f.Code = c.text()
	}
	if s := n.child("faultstring"); s != nil {
		f.String = s.text()
	}
	if d := n.child("detail"); d != nil {
		f.Detail = strings.TrimSpace(string(d.Inner))
	}
	return f
}

// encodeEnvelope renders an RPC/encoded call with typed parts:
//
//	<soapenv:Envelope ...><soapenv:Body><jira:op><in0 xsi:type="xsd:string">..</in0>...</jira:op></soapenv:Body></soapenv:Envelope>
func encodeEnvelope(operation string, args []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	envelope := xml.StartElement{
		Name: xml.Name{Local: "soapenv:Envelope"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:soapenv"}, Value: envelopeNS},
			{Name: xml.Name{Local: "xmlns:soapenc"}, Value: encodingNS},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: xsiNS},
			{Name: xml.Name{Local: "xmlns:xsd"}, Value: xsdNS},
			{Name: xml.Name{Local: "xmlns:jira"}, Value: serviceNS},
			{Name: xml.Name{Local: "xmlns:beans"}, Value: beansNS},
		},
	}
	body := xml.StartElement{Name: xml.Name{Local: "soapenv:Body"}}
	call := xml.StartElement{
		Name: xml.Name{Local: "jira:" + operation},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "soapenv:encodingStyle"}, Value: encodingNS},
		},
	}

	for _, tok := range []xml.Token{envelope, body, call} {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}

	for i, arg := range args {
		start := xml.StartElement{Name: xml.Name{Local: fmt.Sprintf("in%d", i)}}
		if typ, ok := partType(arg); ok {
			start.Attr = []xml.Attr{{Name: xml.Name{Local: "xsi:type"}, Value: typ}}
		}
		if err := enc.EncodeElement(arg, start); err != nil {
			return nil, fmt.Errorf("encoding argument %d: %w", i, err)
		}
	}

	for _, tok := range []xml.Token{call.End(), body.End(), envelope.End()} {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// resolver follows href="#id" references to multiRef elements.
type resolver struct {
	refs map[string]*node
}

func newResolver(body *node) *resolver {
	r := &resolver{refs: make(map[string]*node)}
	r.index(body)
	return r
}

func (r *resolver) index(n *node) {
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if id := child.attr("id"); id != "" {
			r.refs[id] = child
		}
		r.index(child)
	}
}

// deref returns the element n refers to, or n itself when it is not a
// reference. Reference chains are followed up to a fixed depth.
func (r *resolver) deref(n *node) *node {
	for depth := 0; n != nil && depth < 16; depth++ {
		href := n.attr("href")
		if !strings.HasPrefix(href, "#") {
			return n
		}
		target, ok := r.refs[strings.TrimPrefix(href, "#")]
		if !ok {
			return n
		}
		n = target
	}
	return n
}

// field returns the resolved text of the named child of n.
func (r *resolver) field(n *node, local string) string {
	c := r.deref(n.child(local))
	if c == nil || c.isNil() {
		return ""
	}
	return c.text()
}

// items returns the resolved elements of an array-valued node.
func (r *resolver) items(n *node) []*node {
	n = r.deref(n)
	if n == nil || n.isNil() {
		return nil
	}
	out := make([]*node, 0, len(n.Nodes))
	for i := range n.Nodes {
		out = append(out, r.deref(&n.Nodes[i]))
	}
	return out
}

func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String()
}
