// Package keys derives cache keys for feature requests.
package keys

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Key derives the cache key for one GetFeature request. Query parameters are
// canonicalized (sorted, CQL whitespace collapsed) so equivalent URLs share a key.
func Key(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	layer := sanitizeLayer(strings.TrimSpace(firstOf(q, "typename", "typeName", "typeNames")))
	mode := "bbox"
	if cql := firstOf(q, "CQL_FILTER", "cql_filter"); cql != "" {
		mode = "filter"
		q.Del("cql_filter")
		q.Set("CQL_FILTER", normalizeFilters(cql))
	}
	canonical := u.Host + u.EscapedPath() + "?" + q.Encode()
	sum := xxhash.Sum64String(canonical)

	return fmt.Sprintf("wfs:%s:%s:f=%016x", layer, mode, sum), nil
}

func firstOf(q url.Values, names ...string) string {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}

var punctSpace = regexp.MustCompile(`\s*([=<>!\.,\(\)])\s*`)

func normalizeFilters(s string) string {
	if s == "" {
		return ""
	}
	s = collapseASCIIWhitespace(strings.TrimSpace(s))
	// Remove spaces around these punctuation tokens.
	return punctSpace.ReplaceAllString(s, "$1")
}

func sanitizeLayer(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
