package textutil

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes every tag and attribute. Script and style contents are
// dropped along with their tags.
var strictPolicy = bluemonday.StrictPolicy()

var (
	blockBoundary = regexp.MustCompile(`(?i)<br\s*/?>|</?(p|div|li|ul|ol|tr|td|th|table|h[1-6]|blockquote|pre|section|article)\b[^>]*>`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// StripHTML returns the text content of an HTML fragment with entities
// decoded and whitespace collapsed. Block-level boundaries become spaces so
// that "<p>a</p><p>b</p>" reads "a b".
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = blockBoundary.ReplaceAllString(s, " ")
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return CollapseWhitespace(s)
}

var markdownRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)```"), "$1"},
	{regexp.MustCompile("`([^`]*)`"), "$1"},
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`), ""},
	{regexp.MustCompile(`(?m)^\s{0,3}>\s?`), ""},
	{regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`), ""},
	{regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`), "$2"},
	{regexp.MustCompile(`(^|[\s(])[*_]([^*_\n]+)[*_]`), "$1$2"},
	{regexp.MustCompile(`~~(.+?)~~`), "$1"},
}

// StripMarkdown removes common markdown syntax (headers, emphasis, links,
// images, code, quotes, list markers and rules) and returns the remaining
// text with whitespace collapsed.
func StripMarkdown(s string) string {
	for _, rule := range markdownRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return CollapseWhitespace(s)
}

// CollapseWhitespace replaces every whitespace run with a single space and
// trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
