package negotiate

import (
	"fmt"
	"strings"

	"github.com/pithecene-io/accord/types"
)

// PolishInput is the tagged form of everything callers have historically
// sent for polish: a legacy boolean, a mode string, or nothing.
type PolishInput struct {
	kind   polishKind
	legacy bool
	mode   string
}

type polishKind int

const (
	polishAbsent polishKind = iota
	polishLegacyBool
	polishMode
)

// PolishAbsent is the zero input: no preference.
func PolishAbsent() PolishInput {
	return PolishInput{}
}

// PolishLegacy wraps the legacy boolean flag.
func PolishLegacy(v bool) PolishInput {
	return PolishInput{kind: polishLegacyBool, legacy: v}
}

// PolishMode wraps a mode string such as "markdown", "ai-polish" or "true".
func PolishMode(s string) PolishInput {
	return PolishInput{kind: polishMode, mode: s}
}

// PolishFrom wraps an untyped value (bool, *bool, string, types.Polish, nil).
// Any other type is treated as absent.
func PolishFrom(v any) PolishInput {
	switch x := v.(type) {
	case nil:
		return PolishAbsent()
	case bool:
		return PolishLegacy(x)
	case *bool:
		if x == nil {
			return PolishAbsent()
		}
		return PolishLegacy(*x)
	case string:
		return PolishMode(x)
	case types.Polish:
		return PolishMode(string(x))
	default:
		return PolishAbsent()
	}
}

// Normalize resolves the input to a concrete mode:
//   - legacy true and the string "true" become types.PolishMarkdown
//   - concrete modes and their "-polish" spellings map to themselves
//   - false, "false", "", "none" and absence become types.PolishNone
//
// Unrecognized strings are an error.
func (p PolishInput) Normalize() (types.Polish, error) {
	switch p.kind {
	case polishLegacyBool:
		if p.legacy {
			return types.PolishMarkdown, nil
		}
		return types.PolishNone, nil
	case polishMode:
		return ParsePolish(p.mode)
	default:
		return types.PolishNone, nil
	}
}

// ParsePolish parses a polish string.
func ParsePolish(s string) (types.Polish, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "markdown", "markdown-polish":
		return types.PolishMarkdown, nil
	case "ai", "ai-polish":
		return types.PolishAI, nil
	case "", "false", "none":
		return types.PolishNone, nil
	default:
		return types.PolishNone, fmt.Errorf("%w: %q (must be none, markdown, or ai)", ErrUnknownPolish, s)
	}
}
