package textutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var sqlStringEscaper = strings.NewReplacer(
	"\x00", `\0`,
	"\b", `\b`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
	`"`, `\"`,
	`'`, `\'`,
	`\`, `\\`,
)

// EscapeSQLString returns s as a single-quoted, MySQL-style string literal.
// It is meant for building ad hoc queries in workflows; parameterized queries
// remain the better choice whenever the driver supports them.
func EscapeSQLString(s string) string {
	return "'" + sqlStringEscaper.Replace(s) + "'"
}

// EscapeSQLIdentifier quotes an identifier with backticks. Dots split
// qualified names ("db.table" becomes "`db`.`table`") and embedded backticks
// are doubled.
func EscapeSQLIdentifier(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// EscapeSQLValue renders v as a SQL literal. Nil becomes NULL, booleans and
// numbers are written bare, times are formatted as 'YYYY-MM-DD HH:MM:SS.mmm'
// in UTC, slices become comma separated lists and everything else is
// formatted with fmt and escaped as a string.
func EscapeSQLValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return EscapeSQLString(val)
	case []byte:
		return "X'" + fmt.Sprintf("%x", val) + "'"
	case time.Time:
		return "'" + val.UTC().Format("2006-01-02 15:04:05.000") + "'"
	case []interface{}:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = EscapeSQLValue(e)
		}
		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = EscapeSQLString(e)
		}
		return strings.Join(parts, ", ")
	default:
		return EscapeSQLString(fmt.Sprint(val))
	}
}
