package soap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/jira-bridge/internal/logger"
	"github.com/nhle/jira-bridge/internal/source"
)

const (
	wsdlPath    = "/rpc/soap/jirasoapservice-v2"
	servicePath = "/rpc/soap/jirasoapservice-v2"
)

const wsdlTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wsdl:definitions targetNamespace="http://soap.rpc.jira.atlassian.com"
    xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/"
    xmlns:wsdlsoap="http://schemas.xmlsoap.org/wsdl/soap/">
  <wsdl:service name="JiraSoapServiceService">
    <wsdl:port binding="impl:jirasoapservice-v2SoapBinding" name="jirasoapservice-v2">
      <wsdlsoap:address location="%s"/>
    </wsdl:port>
  </wsdl:service>
</wsdl:definitions>`

const envelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:xsd="http://www.w3.org/2001/XMLSchema"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xmlns:soapenc="http://schemas.xmlsoap.org/soap/encoding/">
  <soapenv:Body>%s</soapenv:Body>
</soapenv:Envelope>`

func envelope(body string) string {
	return fmt.Sprintf(envelopeTemplate, body)
}

func fault(msg string) string {
	return envelope(`<soapenv:Fault>
  <faultcode>soapenv:Server.userException</faultcode>
  <faultstring>` + msg + `</faultstring>
  <detail><ns1:hostname xmlns:ns1="http://xml.apache.org/axis/">jira01</ns1:hostname></detail>
</soapenv:Fault>`)
}

func rpcResponse(op, inner string) string {
	return envelope(`<ns1:` + op + `Response soapenv:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"
    xmlns:ns1="http://soap.rpc.jira.atlassian.com">` + inner + `</ns1:` + op + `Response>`)
}

type reply struct {
	status int
	body   string
}

// fakeService answers SOAP calls by operation name and records requests.
type fakeService struct {
	mu       sync.Mutex
	replies  map[string]reply
	requests map[string][]string
}

var opPattern = regexp.MustCompile(`<jira:(\w+)`)

func newFakeService(t *testing.T, withAddress bool) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{replies: map[string]reply{}, requests: map[string][]string{}}

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == wsdlPath {
			location := ""
			if withAddress {
				location = srv.URL + servicePath
			}
			w.Header().Set("Content-Type", "text/xml")
			fmt.Fprintf(w, wsdlTemplate, location)
			return
		}
		if r.Method != http.MethodPost || r.URL.Path != servicePath {
			http.NotFound(w, r)
			return
		}

		raw, _ := io.ReadAll(r.Body)
		m := opPattern.FindSubmatch(raw)
		if m == nil {
			http.Error(w, "no operation", http.StatusBadRequest)
			return
		}
		op := string(m[1])

		f.mu.Lock()
		f.requests[op] = append(f.requests[op], string(raw))
		rep, ok := f.replies[op]
		f.mu.Unlock()
		if !ok {
			rep = reply{http.StatusInternalServerError, fault("No such operation '" + op + "'")}
		}

		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(rep.status)
		io.WriteString(w, rep.body)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) on(op string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[op] = reply{status, body}
}

func (f *fakeService) lastRequest(op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[op]
	if len(reqs) == 0 {
		return ""
	}
	return reqs[len(reqs)-1]
}

func openTransport(t *testing.T, srv *httptest.Server, trace bool) *Transport {
	t.Helper()
	tr := New(source.Options{Timeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, tr.Open(context.Background(), srv.URL+wsdlPath+"?wsdl", trace))
	return tr
}

func TestOpen_UsesWSDLAddress(t *testing.T) {
	_, srv := newFakeService(t, true)
	tr := openTransport(t, srv, false)
	assert.Equal(t, srv.URL+servicePath, tr.client.Endpoint())
}

func TestOpen_FallsBackToWSDLURLWithoutQuery(t *testing.T) {
	_, srv := newFakeService(t, false)
	tr := openTransport(t, srv, false)
	assert.Equal(t, srv.URL+wsdlPath, tr.client.Endpoint())
}

func TestOpen_MissingWSDLIsTransportError(t *testing.T) {
	_, srv := newFakeService(t, true)
	tr := New(source.Options{}, nil)

	err := tr.Open(context.Background(), srv.URL+"/nope?wsdl", true)
	assert.ErrorIs(t, err, source.ErrTransport)
}

func TestCallBeforeOpen(t *testing.T) {
	tr := New(source.Options{}, nil)
	_, err := tr.Login(context.Background(), "behat", "secret")
	assert.ErrorIs(t, err, source.ErrTransport)
}

func TestLogin_ReturnsToken(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opLogin, http.StatusOK, rpcResponse("login",
		`<loginReturn xsi:type="xsd:string">tok-123</loginReturn>`))
	tr := openTransport(t, srv, false)

	token, err := tr.Login(context.Background(), "behat", "s&cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	req := f.lastRequest(opLogin)
	assert.Contains(t, req, `<in0 xsi:type="xsd:string">behat</in0>`)
	assert.Contains(t, req, `<in1 xsi:type="xsd:string">s&amp;cret</in1>`, "arguments are XML-escaped")
	assert.Contains(t, req, `xmlns:xsd="http://www.w3.org/2001/XMLSchema"`)
	assert.Contains(t, req, `xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"`)
}

func TestLogin_FaultIsAuthError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opLogin, http.StatusInternalServerError, fault(
		"com.atlassian.jira.rpc.exception.RemoteAuthenticationException: Invalid username or password."))
	tr := openTransport(t, srv, false)

	_, err := tr.Login(context.Background(), "behat", "wrong")
	require.Error(t, err)
	assert.True(t, source.IsAuthError(err))
	assert.Contains(t, err.Error(), "Invalid username or password")
}

func TestLogin_EmptyTokenIsAuthError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opLogin, http.StatusOK, rpcResponse("login", `<loginReturn xsi:type="xsd:string"></loginReturn>`))
	tr := openTransport(t, srv, false)

	_, err := tr.Login(context.Background(), "behat", "secret")
	assert.True(t, source.IsAuthError(err))
}

func TestHTTPUnauthorizedIsAuthError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssue, http.StatusUnauthorized, "")
	tr := openTransport(t, srv, false)

	_, err := tr.GetIssue(context.Background(), "tok", "ACME-1")
	assert.True(t, source.IsAuthError(err))
}

const searchReply = `
<ns1:getIssuesFromJqlSearchResponse soapenv:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"
    xmlns:ns1="http://soap.rpc.jira.atlassian.com">
  <getIssuesFromJqlSearchReturn soapenc:arrayType="ns2:RemoteIssue[2]" xsi:type="soapenc:Array"
      xmlns:ns2="http://beans.soap.rpc.jira.atlassian.com">
    <getIssuesFromJqlSearchReturn href="#id0"/>
    <getIssuesFromJqlSearchReturn href="#id1"/>
  </getIssuesFromJqlSearchReturn>
</ns1:getIssuesFromJqlSearchResponse>
<multiRef id="id0" soapenc:root="0" xsi:type="ns3:RemoteIssue" xmlns:ns3="http://beans.soap.rpc.jira.atlassian.com">
  <id xsi:type="xsd:string">10001</id>
  <key xsi:type="xsd:string">ACME-1</key>
  <summary xsi:type="xsd:string">Build fails on ARM</summary>
  <status href="#id2"/>
  <assignee xsi:type="xsd:string" xsi:nil="true"/>
  <updated xsi:type="xsd:dateTime">2024-03-01T09:30:00.000Z</updated>
</multiRef>
<multiRef id="id1" soapenc:root="0" xsi:type="ns4:RemoteIssue" xmlns:ns4="http://beans.soap.rpc.jira.atlassian.com">
  <id xsi:type="xsd:string">10002</id>
  <key xsi:type="xsd:string">ACME-2</key>
  <summary xsi:type="xsd:string">Docs typo</summary>
  <status xsi:type="xsd:string">1</status>
  <assignee xsi:type="xsd:string">behat</assignee>
</multiRef>
<multiRef id="id2" soapenc:root="0" xsi:type="xsd:string">6</multiRef>`

func TestSearch_DecodesMultiRefArray(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssuesFromJqlSearch, http.StatusOK, envelope(searchReply))
	tr := openTransport(t, srv, false)

	issues, err := tr.Search(context.Background(), "tok", "project = ACME", 2147483647)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, "10001", issues[0].ID)
	assert.Equal(t, "ACME-1", issues[0].Key)
	assert.Equal(t, "Build fails on ARM", issues[0].Summary)
	assert.Equal(t, "6", issues[0].Status, "status resolved through href")
	assert.Empty(t, issues[0].Assignee, "xsi:nil is empty")
	assert.True(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).Equal(issues[0].Updated))
	assert.Contains(t, string(issues[0].Raw), "<key")

	assert.Equal(t, "ACME-2", issues[1].Key)
	assert.Equal(t, "behat", issues[1].Assignee)

	req := f.lastRequest(opGetIssuesFromJqlSearch)
	assert.Contains(t, req, `<in0 xsi:type="xsd:string">tok</in0>`)
	assert.Contains(t, req, `<in1 xsi:type="xsd:string">project = ACME</in1>`)
	assert.Contains(t, req, `<in2 xsi:type="xsd:int">2147483647</in2>`)
}

func TestSearch_EmptyResult(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssuesFromJqlSearch, http.StatusOK, rpcResponse("getIssuesFromJqlSearch",
		`<getIssuesFromJqlSearchReturn soapenc:arrayType="ns2:RemoteIssue[0]" xsi:type="soapenc:Array"/>`))
	tr := openTransport(t, srv, false)

	issues, err := tr.Search(context.Background(), "tok", "project = NONE", 10)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestSearch_FaultIsQueryError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssuesFromJqlSearch, http.StatusInternalServerError, fault(
		"com.atlassian.jira.rpc.exception.RemoteException: Field 'bogus' does not exist or you do not have permission to view it."))
	tr := openTransport(t, srv, false)

	_, err := tr.Search(context.Background(), "tok", "bogus = 1", 10)
	assert.ErrorIs(t, err, source.ErrQuery)
}

func TestSearch_ExpiredSessionIsAuthError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssuesFromJqlSearch, http.StatusInternalServerError, fault(
		"com.atlassian.jira.rpc.exception.RemoteAuthenticationException: User not authenticated yet, or session timed out."))
	tr := openTransport(t, srv, false)

	_, err := tr.Search(context.Background(), "stale", "project = ACME", 10)
	assert.True(t, source.IsAuthError(err))
}

func TestGetIssue_Inline(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssue, http.StatusOK, rpcResponse("getIssue", `
<getIssueReturn xsi:type="ns2:RemoteIssue" xmlns:ns2="http://beans.soap.rpc.jira.atlassian.com">
  <key xsi:type="xsd:string">ACME-7</key>
  <project xsi:type="xsd:string">ACME</project>
  <description xsi:type="xsd:string">Line one
line two</description>
</getIssueReturn>`))
	tr := openTransport(t, srv, false)

	issue, err := tr.GetIssue(context.Background(), "tok", "ACME-7")
	require.NoError(t, err)
	assert.Equal(t, "ACME-7", issue.Key)
	assert.Equal(t, "ACME", issue.Project)
	assert.Equal(t, "Line one\nline two", issue.Description)
}

func TestGetIssue_MissingIssue(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssue, http.StatusInternalServerError, fault(
		"com.atlassian.jira.rpc.exception.RemotePermissionException: This issue does not exist or you don't have permission to view it."))
	tr := openTransport(t, srv, false)

	_, err := tr.GetIssue(context.Background(), "tok", "ACME-404")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestGetIssue_NilReturn(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetIssue, http.StatusOK, rpcResponse("getIssue", `<getIssueReturn xsi:nil="true"/>`))
	tr := openTransport(t, srv, false)

	_, err := tr.GetIssue(context.Background(), "tok", "ACME-404")
	assert.ErrorIs(t, err, source.ErrNotFound)
}

func TestAddComment_EncodesRemoteComment(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opAddComment, http.StatusOK, rpcResponse("addComment", ""))
	tr := openTransport(t, srv, false)

	err := tr.AddComment(context.Background(), "tok", "ACME-1", source.Comment{Body: "Fixed <in> build 431"})
	require.NoError(t, err)

	req := f.lastRequest(opAddComment)
	assert.Contains(t, req, `<in1 xsi:type="xsd:string">ACME-1</in1>`)
	assert.Contains(t, req, `<in2 xsi:type="beans:RemoteComment"><body>Fixed &lt;in&gt; build 431</body></in2>`)
}

func TestAddComment_OtherFaultIsTransportError(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opAddComment, http.StatusInternalServerError, fault("java.lang.NullPointerException"))
	tr := openTransport(t, srv, false)

	err := tr.AddComment(context.Background(), "tok", "ACME-1", source.Comment{Body: "x"})
	assert.ErrorIs(t, err, source.ErrTransport)
}

func TestGetAvailableActions_KeepsServerOrder(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opGetAvailableActions, http.StatusOK, envelope(`
<ns1:getAvailableActionsResponse xmlns:ns1="http://soap.rpc.jira.atlassian.com">
  <getAvailableActionsReturn soapenc:arrayType="ns2:RemoteNamedObject[3]" xsi:type="soapenc:Array">
    <getAvailableActionsReturn href="#id0"/>
    <getAvailableActionsReturn href="#id1"/>
    <getAvailableActionsReturn href="#id2"/>
  </getAvailableActionsReturn>
</ns1:getAvailableActionsResponse>
<multiRef id="id2"><id>701</id><name>Close Issue</name></multiRef>
<multiRef id="id0"><id>3</id><name>Reopen Issue</name></multiRef>
<multiRef id="id1"><id>5</id><name>Resolve Issue</name></multiRef>`))
	tr := openTransport(t, srv, false)

	actions, err := tr.GetAvailableActions(context.Background(), "tok", "ACME-1")
	require.NoError(t, err)
	assert.Equal(t, []source.Action{
		{ID: "3", Name: "Reopen Issue"},
		{ID: "5", Name: "Resolve Issue"},
		{ID: "701", Name: "Close Issue"},
	}, actions)
}

func TestProgressWorkflowAction(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opProgressWorkflowAction, http.StatusOK, rpcResponse("progressWorkflowAction", `
<progressWorkflowActionReturn><key>ACME-1</key><status>4</status></progressWorkflowActionReturn>`))
	tr := openTransport(t, srv, false)

	issue, err := tr.ProgressWorkflowAction(context.Background(), "tok", "ACME-1", "3", nil)
	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "4", issue.Status)

	req := f.lastRequest(opProgressWorkflowAction)
	assert.Contains(t, req, `<in2 xsi:type="xsd:string">3</in2>`)
	assert.Contains(t, req, `<in3 xsi:type="soapenc:Array" soapenc:arrayType="beans:RemoteFieldValue[0]"></in3>`)
}

func TestProgressWorkflowAction_EncodesFields(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opProgressWorkflowAction, http.StatusOK, rpcResponse("progressWorkflowAction",
		`<progressWorkflowActionReturn xsi:nil="true"/>`))
	tr := openTransport(t, srv, false)

	issue, err := tr.ProgressWorkflowAction(context.Background(), "tok", "ACME-1", "5",
		[]source.FieldValue{{ID: "resolution", Values: []string{"1"}}})
	require.NoError(t, err)
	assert.Nil(t, issue)

	req := f.lastRequest(opProgressWorkflowAction)
	assert.Contains(t, req, `<in3 xsi:type="soapenc:Array" soapenc:arrayType="beans:RemoteFieldValue[1]">`+
		`<item xsi:type="beans:RemoteFieldValue"><id>resolution</id>`+
		`<values xsi:type="soapenc:Array" soapenc:arrayType="xsd:string[1]"><item>1</item></values></item></in3>`)
}

func TestTrace_RecordsLastExchange(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opLogin, http.StatusOK, rpcResponse("login", `<loginReturn>tok-123</loginReturn>`))

	tr := openTransport(t, srv, true)
	_, err := tr.Login(context.Background(), "behat", "secret")
	require.NoError(t, err)

	ex := tr.LastExchange()
	assert.Equal(t, opLogin, ex.Operation)
	assert.True(t, strings.Contains(string(ex.Request), "<jira:login"))
	assert.Contains(t, string(ex.Response), "tok-123")
}

func TestTrace_DisabledKeepsNothing(t *testing.T) {
	f, srv := newFakeService(t, true)
	f.on(opLogin, http.StatusOK, rpcResponse("login", `<loginReturn>tok-123</loginReturn>`))

	tr := openTransport(t, srv, false)
	_, err := tr.Login(context.Background(), "behat", "secret")
	require.NoError(t, err)
	assert.Empty(t, tr.LastExchange().Operation)
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://jira.example.com/rpc/soap/jirasoapservice-v2",
		stripQuery("https://jira.example.com/rpc/soap/jirasoapservice-v2?wsdl"))
	assert.Equal(t, "https://jira.example.com/x", stripQuery("https://jira.example.com/x"))
}

func TestResolver_StopsOnReferenceCycle(t *testing.T) {
	ref := func(id, href string) node {
		return node{Attrs: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: id},
			{Name: xml.Name{Local: "href"}, Value: href},
		}}
	}
	body := node{Nodes: []node{ref("a", "#b"), ref("b", "#a")}}

	r := newResolver(&body)
	assert.NotNil(t, r.deref(&body.Nodes[0]))
}
