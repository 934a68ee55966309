package remote

import (
	"net/http"
	"strings"
)

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

// APIRootFromLinks returns the target of the Link whose rel is RelAPIRoot, or
// "" when none is advertised. Headers may be repeated or comma-joined.
func APIRootFromLinks(header http.Header) string {
	var root string
	for _, value := range header.Values("Link") {
		for _, link := range splitLinks(value) {
			if !strings.Contains(link, `rel="`+RelAPIRoot+`"`) {
				continue
			}
			start := strings.Index(link, "<")
			end := strings.Index(link, ">")
			if start < 0 || end <= start {
				continue
			}
			root = strings.TrimSpace(link[start+1 : end])
		}
	}
	return root
}

// splitLinks splits a Link header value on commas outside <...>.
func splitLinks(value string) []string {
	var (
		links []string
		depth int
		last  int
	)
	for i, r := range value {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				links = append(links, value[last:i])
				last = i + 1
			}
		}
	}
	return append(links, value[last:])
}
