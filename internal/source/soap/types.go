package soap

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nhle/jira-bridge/internal/source"
)

const (
	envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	encodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
	xsiNS      = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNS      = "http://www.w3.org/2001/XMLSchema"

	// serviceNS is the namespace of the jirasoapservice-v2 RPC operations.
	serviceNS = "http://soap.rpc.jira.atlassian.com"
	// beansNS is the namespace of the Remote* bean types.
	beansNS = "http://beans.soap.rpc.jira.atlassian.com"
)

// remoteComment is the RemoteComment bean sent by addComment.
type remoteComment struct {
	Body string `xml:"body"`
}

// remoteFieldValue is the RemoteFieldValue bean used by progressWorkflowAction.
type remoteFieldValue struct {
	Type   string      `xml:"xsi:type,attr"`
	ID     string      `xml:"id"`
	Values stringArray `xml:"values"`
}

// stringArray is an encoded xsd:string[].
type stringArray struct {
	Type      string   `xml:"xsi:type,attr"`
	ArrayType string   `xml:"soapenc:arrayType,attr"`
	Items     []string `xml:"item"`
}

// fieldValueArray is an encoded RemoteFieldValue[]; each value is an <item>
// child of the parameter element.
type fieldValueArray struct {
	Type      string             `xml:"xsi:type,attr"`
	ArrayType string             `xml:"soapenc:arrayType,attr"`
	Items     []remoteFieldValue `xml:"item"`
}

func newFieldValueArray(fields []source.FieldValue) fieldValueArray {
	arr := fieldValueArray{
		Type:      "soapenc:Array",
		ArrayType: fmt.Sprintf("beans:RemoteFieldValue[%d]", len(fields)),
		Items:     make([]remoteFieldValue, 0, len(fields)),
	}
	for _, f := range fields {
		arr.Items = append(arr.Items, remoteFieldValue{
			Type: "beans:RemoteFieldValue",
			ID:   f.ID,
			Values: stringArray{
				Type:      "soapenc:Array",
				ArrayType: fmt.Sprintf("xsd:string[%d]", len(f.Values)),
				Items:     f.Values,
			},
		})
	}
	return arr
}

// partType returns the xsi:type of a scalar or bean RPC part. Arrays carry
// their own type attributes.
func partType(arg any) (string, bool) {
	switch arg.(type) {
	case string:
		return "xsd:string", true
	case int32:
		return "xsd:int", true
	case remoteComment:
		return "beans:RemoteComment", true
	}
	return "", false
}

// node is a generic decoded XML element. RPC/encoded responses reference
// shared values through href="#id" attributes, so responses are decoded into
// a tree first and resolved afterwards.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Inner   []byte     `xml:",innerxml"`
	Nodes   []node     `xml:",any"`
}

// attr returns the value of the attribute with the given local name.
func (n *node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// child returns the first direct child with the given local name.
func (n *node) child(local string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

// isNil reports whether the element carries xsi:nil="true".
func (n *node) isNil() bool {
	return n.attr("nil") == "true"
}

// text returns the trimmed character data of the element.
func (n *node) text() string {
	return strings.TrimSpace(n.Content)
}

// responseEnvelope matches a SOAP 1.1 envelope in any namespace prefix.
type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    node     `xml:"Body"`
}

// Fault is a SOAP 1.1 fault returned by the service.
type Fault struct {
	Code   string
	String string
	Detail string
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return f.String
	}
	return f.Code + ": " + f.String
}

// wsdlDefinitions holds the part of a WSDL document needed to find the
// service endpoint.
type wsdlDefinitions struct {
	XMLName  xml.Name      `xml:"definitions"`
	Services []wsdlService `xml:"service"`
}

type wsdlService struct {
	Name  string     `xml:"name,attr"`
	Ports []wsdlPort `xml:"port"`
}

type wsdlPort struct {
	Name    string `xml:"name,attr"`
	Address struct {
		Location string `xml:"location,attr"`
	} `xml:"address"`
}

// Exchange is a traced request/response pair.
type Exchange struct {
	Operation string
	Request   []byte
	Response  []byte
}
