package crawl

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyAdmit(t *testing.T) {
	t.Parallel()

	exclusions := []*regexp.Regexp{
		regexp.MustCompile(`\.pdf$`),
		regexp.MustCompile(`/logout`),
	}
	policy, err := NewPolicy("https://app.example.com", 2, exclusions)
	require.NoError(t, err)

	cases := []struct {
		name  string
		url   string
		depth int
		want  bool
	}{
		{name: "same authority within depth", url: "https://app.example.com/reports", depth: 0, want: true},
		{name: "at depth bound", url: "https://app.example.com/reports", depth: 1, want: true},
		{name: "beyond depth bound", url: "https://app.example.com/reports", depth: 2, want: false},
		{name: "cross authority", url: "https://other.example.com/reports", depth: 0, want: false},
		{name: "subdomain is a different authority", url: "https://cdn.app.example.com/x", depth: 0, want: false},
		{name: "excluded extension", url: "https://app.example.com/export/q3.pdf", depth: 0, want: false},
		{name: "excluded path", url: "https://app.example.com/logout", depth: 0, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, policy.Admit(tc.url, tc.depth))
		})
	}
}

func TestNewPolicyRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewPolicy("not a url\x7f", 2, nil)
	assert.Error(t, err)

	_, err = NewPolicy("https://app.example.com", -1, nil)
	assert.Error(t, err)
}

func TestPolicyMaxDepth(t *testing.T) {
	t.Parallel()

	policy, err := NewPolicy("https://app.example.com", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, policy.MaxDepth())
}
