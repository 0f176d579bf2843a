package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFilenameLength is the byte length SanitizeFilename truncates to.
const MaxFilenameLength = 200

// DefaultFilename is returned by SanitizeFilename when nothing usable is left.
const DefaultFilename = "untitled"

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)

	reservedFilenames = map[string]bool{
		"con": true, "prn": true, "aux": true, "nul": true,
		"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
		"com6": true, "com7": true, "com8": true, "com9": true,
		"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
		"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
	}
)

// SanitizeFilename converts name into a filename that is safe on common
// filesystems. Path separators and characters reserved on Windows are
// removed, control characters dropped, whitespace replaced with underscores
// and leading or trailing dots trimmed. Reserved device names such as "CON"
// get a trailing underscore. The result is at most MaxFilenameLength bytes and
// never empty.
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)

	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". _")

	if len(name) > MaxFilenameLength {
		name = truncateBytes(name, MaxFilenameLength)
		name = strings.TrimRight(name, ". _")
	}

	if name == "" {
		return DefaultFilename
	}

	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if reservedFilenames[strings.ToLower(base)] {
		name = base + "_" + name[len(base):]
	}

	return name
}

// truncateBytes cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
