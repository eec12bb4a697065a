// Package pathutil holds the pure string helpers shared by the document
// model, the validators and the emitters: URI syntax checks, path
// placeholder handling, identifier checks and symbol sanitization.
package pathutil

import (
	"regexp"
	"strings"
)

var (
	wordRe        = regexp.MustCompile(`^\w+$`)
	placeholderRe = regexp.MustCompile(`^\{\w+\}$`)
	pathItemRe    = regexp.MustCompile(`\{(\w+)\}`)
	queryPairRe   = regexp.MustCompile(`^\w+=\w+$`)
)

// ValidateURI reports whether uri is a sequence of "/"-separated word
// segments. Whole-segment {name} placeholders are accepted when
// allowPlaceholders is set and a trailing ?key=value&... query when
// allowQuery is set. A single trailing "/" is tolerated and "/" alone is the
// root. Anything else fails.
func ValidateURI(uri string, allowQuery, allowPlaceholders bool) bool {
	path := uri
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		if !allowQuery {
			return false
		}
		path = uri[:i]
		if !validQuery(uri[i+1:]) {
			return false
		}
	}

	rooted := strings.HasPrefix(path, "/")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return rooted
	}
	path = strings.TrimSuffix(path, "/")

	for _, seg := range strings.Split(path, "/") {
		switch {
		case wordRe.MatchString(seg):
		case allowPlaceholders && placeholderRe.MatchString(seg):
		default:
			return false
		}
	}
	return true
}

func validQuery(q string) bool {
	if q == "" {
		return false
	}
	for _, pair := range strings.Split(q, "&") {
		if !queryPairRe.MatchString(pair) {
			return false
		}
	}
	return true
}

// ExtractPathItems returns the names of all {name} placeholders in uri, left
// to right, duplicates preserved.
func ExtractPathItems(uri string) []string {
	matches := pathItemRe.FindAllStringSubmatch(uri, -1)
	items := make([]string, 0, len(matches))
	for _, m := range matches {
		items = append(items, m[1])
	}
	return items
}

// SubstitutePathItem replaces every {name} in uri with value, literally.
func SubstitutePathItem(uri, name, value string) string {
	return strings.ReplaceAll(uri, "{"+name+"}", value)
}

// StripPathItemNames replaces every {name} placeholder with "{}".
func StripPathItemNames(uri string) string {
	return pathItemRe.ReplaceAllLiteralString(uri, "{}")
}

// Segments splits a path into its non-empty segments.
func Segments(uri string) []string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	parts := strings.Split(uri, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
