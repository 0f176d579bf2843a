package textutil

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowerCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ingestion Sources", "ingestionSources"},
		{"API_Config-v2", "apiConfigV2"},
		{"ingestionSources", "ingestionSources"},
		{"Node's Output", "nodesOutput"},
		{"HTTPRequest", "httpRequest"},
		{"user_id", "userId"},
		{"Get 2 Items", "get2Items"},
		{"  --  ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LowerCamel(tt.in))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"foo", "Bar", "baz"}, Words("fooBar baz"))
	assert.Empty(t, Words("!!!"))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"1d 2h", 26 * time.Hour},
		{"1.5 hours", 90 * time.Minute},
		{"2 weeks, 1d", 15 * 24 * time.Hour},
		{"1 day and 2 hours", 26 * time.Hour},
		{"500", 500 * time.Millisecond},
		{"-2s", -2 * time.Second},
		{"-1d", -24 * time.Hour},
		{"3 Minutes", 3 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1x", "1 hour and"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDuration))
		})
	}

	assert.Equal(t, time.Minute, DurationOr("nonsense", time.Minute))
	assert.Equal(t, 2*time.Second, DurationOr("2s", time.Minute))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"reserved characters", "my file:name?.txt", "my_filename.txt"},
		{"dots and spaces trimmed", "  ..hidden.. ", "hidden"},
		{"path separators", `a/b\c`, "abc"},
		{"tab becomes underscore", "tab\tname", "tab_name"},
		{"control characters dropped", "bell\x07.txt", "bell.txt"},
		{"empty", "", DefaultFilename},
		{"nothing usable", "???", DefaultFilename},
		{"reserved device name", "CON.txt", "CON_.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}

	t.Run("long names are truncated", func(t *testing.T) {
		got := SanitizeFilename(strings.Repeat("a", 300))
		assert.Len(t, got, MaxFilenameLength)
	})

	t.Run("truncation keeps utf-8 valid", func(t *testing.T) {
		got := SanitizeFilename(strings.Repeat("é", 150))
		assert.LessOrEqual(t, len(got), MaxFilenameLength)
		assert.Equal(t, strings.Repeat("é", 100), got)
	})
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "Hello World Again & again",
		StripHTML("<p>Hello <b>World</b></p><p>Again &amp; again</p>"))
	assert.Equal(t, "Hi", StripHTML("<script>alert(1)</script>Hi"))
	assert.Equal(t, "line one line two", StripHTML("line one<br/>line two"))
	assert.Equal(t, "", StripHTML(""))
}

func TestStripMarkdown(t *testing.T) {
	in := "# Title\n\nSome **bold** and *italic* [link](http://x.com) `code`\n\n- first\n- second"
	assert.Equal(t, "Title Some bold and italic link code first second", StripMarkdown(in))
	assert.Equal(t, "keep foo_bar_baz", StripMarkdown("keep foo_bar_baz"))
}

func TestEscapeSQL(t *testing.T) {
	assert.Equal(t, `'O\'Reilly'`, EscapeSQLString("O'Reilly"))
	assert.Equal(t, `'a\nb'`, EscapeSQLString("a\nb"))
	assert.Equal(t, `'back\\slash'`, EscapeSQLString(`back\slash`))
	assert.Equal(t, `'say \"hi\"'`, EscapeSQLString(`say "hi"`))

	assert.Equal(t, "`db`.`ta``ble`", EscapeSQLIdentifier("db.ta`ble"))

	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "NULL"},
		{true, "true"},
		{42, "42"},
		{1.5, "1.5"},
		{"x", "'x'"},
		{[]interface{}{1, "a"}, "1, 'a'"},
		{ts, "'2024-01-02 03:04:05.006'"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeSQLValue(tt.in))
	}
}

func TestValidation(t *testing.T) {
	assert.True(t, IsEmail("user@example.com"))
	assert.False(t, IsEmail("not-an-email"))
	assert.False(t, IsEmail(""))

	assert.True(t, IsURL("https://example.com/path"))
	assert.True(t, IsURL("example.com"))
	assert.False(t, IsURL("not a url"))
	assert.False(t, IsURL(""))

	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())

	assert.True(t, IsDate("2024-03-01T10:00:00Z"))
	assert.False(t, IsDate("garbage"))
	assert.False(t, IsDate(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello...", Truncate("hello world", 8))
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))
}
