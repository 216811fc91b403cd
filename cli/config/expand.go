// Package config loads accord.yaml and the ACCORD_* environment overlay.
package config

import (
	"os"
	"regexp"
	"strings"
)

// placeholder matches ${NAME} and ${NAME:-fallback}.
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// ExpandEnv substitutes ${NAME} and ${NAME:-fallback} in s. A variable that
// is unset or empty takes its fallback, or expands to nothing. A missing
// base URL is reported later by the API client, not here.
func ExpandEnv(s string) string {
	matches := placeholder.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		fallback := ""
		if m[4] >= 0 {
			fallback = s[m[4]+len(":-") : m[5]]
		}
		b.WriteString(lookupEnv(s[m[2]:m[3]], fallback))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func lookupEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
