package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Policy decides whether a discovered link may be enqueued. It is a pure
// predicate over the base authority, the exclusion patterns, and the depth
// bound; the already-claimed check lives in the Ledger so admission stays
// independent of traversal order.
type Policy struct {
	baseAuthority string
	maxDepth      int
	exclusions    []*regexp.Regexp
}

// NewPolicy builds a Policy scoped to the authority of baseURL.
func NewPolicy(baseURL string, maxDepth int, exclusions []*regexp.Regexp) (*Policy, error) {
	canonical, err := Canonicalize(baseURL)
	if err != nil {
		return nil, fmt.Errorf("canonicalize base url: %w", err)
	}
	authority, err := Authority(canonical)
	if err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("max depth must be >= 0")
	}
	return &Policy{
		baseAuthority: strings.ToLower(authority),
		maxDepth:      maxDepth,
		exclusions:    exclusions,
	}, nil
}

// Admit reports whether a candidate canonical URL discovered at currentDepth
// may be visited at currentDepth+1. It rejects cross-authority links, links
// matching any exclusion pattern, and links beyond the depth bound.
func (p *Policy) Admit(canonicalURL string, currentDepth int) bool {
	if currentDepth+1 > p.maxDepth {
		return false
	}
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, p.baseAuthority) {
		return false
	}
	for _, pattern := range p.exclusions {
		if pattern.MatchString(canonicalURL) {
			return false
		}
	}
	return true
}

// MaxDepth exposes the configured depth bound.
func (p *Policy) MaxDepth() int {
	return p.maxDepth
}
