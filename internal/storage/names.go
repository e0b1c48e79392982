package storage

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	htmlPrefix       = "pages"
	screenshotPrefix = "screenshots"
	indexObjectName  = "page_index.json"
	digestLen        = 10
)

// objectName derives a readable, collision-free object name for a page
// artifact: the sanitized last path segment plus a digest prefix of the
// canonical URL. Two distinct URLs never share a name; the same URL always
// maps to the same name.
func objectName(canonicalURL, digest, prefix, ext string) (string, error) {
	parsed, err := url.Parse(canonicalURL)
	if err != nil {
		return "", fmt.Errorf("parse canonical url: %w", err)
	}
	if len(digest) < digestLen {
		return "", fmt.Errorf("digest too short: %q", digest)
	}
	return fmt.Sprintf("%s/%s-%s%s", prefix, slugify(parsed.Path), digest[:digestLen], ext), nil
}

// slugify reduces a URL path to a filesystem-safe stem. The root path and
// segments that sanitize to nothing become "index".
func slugify(path string) string {
	segment := path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.TrimSuffix(segment, ".html")
	segment = strings.TrimSuffix(segment, ".htm")

	var b strings.Builder
	for _, r := range strings.ToLower(segment) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-.")
	if slug == "" {
		slug = "index"
	}
	return slug
}
