package textutil

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/cast"
)

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && govalidator.IsEmail(s)
}

// IsURL reports whether s is a URL. A scheme is optional, as in
// "example.com/path".
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && govalidator.IsURL(s)
}

// ParseDate converts v into a time. Strings in the common RFC 3339, RFC 1123,
// ISO 8601 date and "2006-01-02 15:04:05" layouts are accepted, as are
// time.Time values and Unix timestamps in seconds.
func ParseDate(v interface{}) (time.Time, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	return cast.ToTimeE(v)
}

// IsDate reports whether ParseDate accepts v.
func IsDate(v interface{}) bool {
	if v == nil {
		return false
	}
	_, err := ParseDate(v)
	return err == nil
}

// Truncate shortens s to at most n runes, replacing the tail with "..." when
// anything was cut. Values of n below 4 cut without the ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n < 4 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
