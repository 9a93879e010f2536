package crossref

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const host = "https://jira.example.com"

func resolveBrowse(url string) (string, bool) {
	prefix := host + "/browse/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return url[len(prefix):], true
}

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"no refs", "fix flaky test", nil},
		{"bare keys", "ACME-12: fix build, see also OPS-3", []string{"ACME-12", "OPS-3"}},
		{"dedup keeps first order", "OPS-3 ACME-12 OPS-3", []string{"OPS-3", "ACME-12"}},
		{"browse url", "details at https://jira.example.com/browse/ACME-7.", []string{"ACME-7"}},
		{"url and key dedup", "ACME-7 (https://jira.example.com/browse/ACME-7)", []string{"ACME-7"}},
		{"foreign url ignored", "see https://other.example.com/browse/XYZ-1", nil},
		{"non-browse url ignored", "https://jira.example.com/secure/Dashboard.jspa", nil},
		{"browse url with comment anchor", "see https://jira.example.com/browse/ACME-7?focusedCommentId=12#comment-12", []string{"ACME-7"}},
		{"browse url with trailing slash", "https://jira.example.com/browse/ACME-8/ is done", []string{"ACME-8"}},
		{"browse url with fragment only", "https://jira.example.com/browse/ACME-9#top", []string{"ACME-9"}},
		{"browse url without key", "https://jira.example.com/browse/", nil},
		{"browse url to project page", "https://jira.example.com/browse/ACME", nil},
		{"lowercase is not a key", "acme-12", nil},
		{"embedded in word", "XACME-12", []string{"XACME-12"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(tc.text, resolveBrowse))
		})
	}
}

func TestExtract_NilResolverSkipsURLs(t *testing.T) {
	got := Extract("https://jira.example.com/browse/ACME-1 and OPS-2", nil)
	assert.Equal(t, []string{"OPS-2"}, got)
}
