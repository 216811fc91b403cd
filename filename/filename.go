// Package filename extracts a suggested filename from a Content-Disposition
// header.
//
// Resolution order:
//   - filename*=<charset>'<lang>'<percent-encoded> (RFC 5987), percent-decoded
//     and converted from charset
//   - filename=<name>, quoted or bare
//   - the caller's fallback
//
// Resolve never fails: anything it cannot parse degrades to the fallback.
package filename

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// Resolve returns the filename carried by header, or fallback when the header
// is empty, malformed, or names nothing usable. Returned names are reduced to
// their base component so they can be joined under a save root.
func Resolve(header, fallback string) string {
	if header == "" {
		return fallback
	}

	params := parseParams(header)

	if v, ok := params["filename*"]; ok {
		if name, ok := decodeExtended(v); ok {
			if name = clean(name); name != "" {
				return name
			}
		}
	}

	if v, ok := params["filename"]; ok {
		if name := clean(unquote(v)); name != "" {
			return name
		}
	}

	return fallback
}

// parseParams splits a disposition header into lowercased parameter names and
// raw values. Semicolons inside double quotes do not split. The disposition
// type itself (no '=') is skipped.
func parseParams(header string) map[string]string {
	params := make(map[string]string)

	var segments []string
	var b strings.Builder
	inQuote, escaped := false, false
	for _, r := range header {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			segments = append(segments, b.String())
			b.Reset()
			continue
		}
		b.WriteRune(r)
	}
	segments = append(segments, b.String())

	for _, seg := range segments {
		key, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		// First occurrence wins.
		if _, dup := params[key]; !dup {
			params[key] = strings.TrimSpace(value)
		}
	}
	return params
}

// unquote strips one pair of matching quotes and resolves backslash escapes
// inside double quotes. Unmatched quotes are left alone.
func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	first, last := v[0], v[len(v)-1]
	if first != last || (first != '"' && first != '\'') {
		return v
	}
	inner := v[1 : len(v)-1]
	if first == '\'' {
		return inner
	}

	var b strings.Builder
	escaped := false
	for _, r := range inner {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// decodeExtended decodes an RFC 5987 ext-value: charset'lang'pct-encoded.
func decodeExtended(v string) (string, bool) {
	v = unquote(v)
	parts := strings.SplitN(v, "'", 3)
	if len(parts) != 3 {
		return "", false
	}
	charset, encoded := strings.TrimSpace(parts[0]), parts[2]

	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return "", false
	}

	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "us-ascii") {
		if !utf8.ValidString(raw) {
			return "", false
		}
		return raw, true
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return "", false
	}
	decoded, err := enc.NewDecoder().String(raw)
	if err != nil {
		return "", false
	}
	return decoded, true
}

// clean reduces name to a single path component.
func clean(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
