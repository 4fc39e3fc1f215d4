// Package sanitize cleans server-supplied names before they touch the
// local filesystem.
package sanitize

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

// maxNameBytes keeps names under common filesystem limits.
const maxNameBytes = 200

var (
	reservedChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	spaceRuns     = regexp.MustCompile(`[ \t]+`)
)

// Windows device names that cannot be used as a file stem.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Filename turns name into a single safe path element. It returns
// fallback when nothing usable is left.
func Filename(name, fallback string) string {
	// Keep only the last element of anything path-like.
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "/" {
		return fallback
	}

	name = removeInvisibleChars(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = reservedChars.ReplaceAllString(name, "_")
	name = spaceRuns.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")

	if name == "" {
		return fallback
	}

	stem := strings.ToUpper(strings.TrimSuffix(name, path.Ext(name)))
	if reservedNames[stem] {
		name = "_" + name
	}

	return truncate(name, maxNameBytes)
}

// truncate shortens name to at most n bytes, keeping the extension and
// never splitting a UTF-8 sequence.
func truncate(name string, n int) string {
	if len(name) <= n {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= n {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]
	limit := n - len(ext)
	for limit > 0 && !utfBoundary(stem, limit) {
		limit--
	}
	return stem[:limit] + ext
}

func utfBoundary(s string, i int) bool {
	return i >= len(s) || s[i]&0xC0 != 0x80
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"\u200B", // Zero-width space
		"\u200C", // Zero-width non-joiner
		"\u200D", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"\u00AD", // Soft hyphen
		"\u2060", // Word joiner
		"\u180E", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
