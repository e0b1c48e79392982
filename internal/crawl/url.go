package crawl

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize reduces a raw URL to the stable form used as the dedup key.
// It lowercases the scheme and host, removes default ports and the fragment,
// sorts query parameters by key then value, and strips all trailing slashes
// from a non-root path. The result is a fixed point: applying Canonicalize to
// its own output never changes it.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url %q has unsupported scheme %q", rawURL, u.Scheme)
	}

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawQuery = sortedQuery(u.Query())

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			// A run of slashes alone is the root path.
			u.Path = "/"
		}
		u.RawPath = ""
	}

	return u.String(), nil
}

// sortedQuery re-encodes query pairs ordered by key, then by value within a
// key. url.Values.Encode sorts keys but preserves value order, so repeated
// keys need an explicit value sort to make the key order-independent.
func sortedQuery(q url.Values) string {
	for _, values := range q {
		sort.Strings(values)
	}
	return q.Encode()
}

// Authority returns the host[:port] component of a canonical URL.
func Authority(canonicalURL string) (string, error) {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return u.Host, nil
}
