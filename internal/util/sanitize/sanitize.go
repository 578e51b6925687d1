// Package sanitize cleans names typed by the user and names received from
// the server before they are used as file names.
//
// It removes:
//   - line endings and tabs (replaced by a single space)
//   - invisible Unicode characters (zero-width spaces, BOM, etc.)
//   - leading and trailing whitespace
package sanitize

import (
	"regexp"
	"strings"
)

var (
	invisibleChars = strings.NewReplacer(
		"\u200B", "", // Zero-width space
		"\u200C", "", // Zero-width non-joiner
		"\u200D", "", // Zero-width joiner
		"\uFEFF", "", // Zero-width no-break space (BOM)
		"\u00AD", "", // Soft hyphen
		"\u2060", "", // Word joiner
		"\u180E", "", // Mongolian vowel separator
	)
	lineBreaks = regexp.MustCompile(`[\r\n\t]+`)

	// Characters not allowed in file names on at least one supported OS.
	reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// Name cleans a resource name typed by the user. Inner spaces are kept.
func Name(s string) string {
	if s == "" {
		return s
	}
	s = invisibleChars.Replace(s)
	s = lineBreaks.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FileName turns a remote resource name into a single local path element.
// fallback is used when nothing usable remains.
func FileName(name, fallback string) string {
	name = Name(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = reservedChars.ReplaceAllString(name, "_")
	name = strings.TrimRight(name, ". ")
	if name == "" || name == "." || name == ".." {
		return fallback
	}
	return name
}
