package processor

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cast"

	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/textutil"
)

// FieldFunc converts the value of a single payload field.
type FieldFunc func(v interface{}) (interface{}, error)

// Fields returns a transform that applies a FieldFunc to each named payload
// field and outputs the converted copy of the payload. Fields absent from
// the payload are left out; the first conversion error fails the item.
// Fields are converted in name order so errors are deterministic.
func Fields(fields map[string]FieldFunc) batch.TransformFunc {
	names := make([]string, 0, len(fields))
	for name, fn := range fields {
		if fn != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(_ context.Context, _ batch.Item, payload map[string]interface{}, _ int, _ batch.Aux) (interface{}, error) {
		out := copyPayload(payload)
		for _, name := range names {
			v, ok := out[name]
			if !ok {
				continue
			}
			converted, err := fields[name](v)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q", name)
			}
			out[name] = converted
		}
		return out, nil
	}
}

var fieldOps = map[string]FieldFunc{
	"string": func(v interface{}) (interface{}, error) {
		return cast.ToStringE(v)
	},
	"int": func(v interface{}) (interface{}, error) {
		return cast.ToInt64E(v)
	},
	"float": func(v interface{}) (interface{}, error) {
		return cast.ToFloat64E(v)
	},
	"bool": func(v interface{}) (interface{}, error) {
		return cast.ToBoolE(v)
	},
	"trim":  stringOp(strings.TrimSpace),
	"lower": stringOp(strings.ToLower),
	"upper": stringOp(strings.ToUpper),
	"camel": stringOp(textutil.LowerCamel),

	"filename":       stringOp(textutil.SanitizeFilename),
	"strip_html":     stringOp(textutil.StripHTML),
	"strip_markdown": stringOp(textutil.StripMarkdown),
	"sql_string":     stringOp(textutil.EscapeSQLString),
	"sql_identifier": stringOp(textutil.EscapeSQLIdentifier),
	"sql_value": func(v interface{}) (interface{}, error) {
		return textutil.EscapeSQLValue(v), nil
	},

	// duration converts a human duration ("1h 30m", "2 days") to milliseconds.
	"duration": func(v interface{}) (interface{}, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		d, err := textutil.ParseDuration(s)
		if err != nil {
			return nil, err
		}
		return d.Milliseconds(), nil
	},

	// date normalizes any recognizable date to RFC 3339 in UTC.
	"date": func(v interface{}) (interface{}, error) {
		t, err := textutil.ParseDate(v)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(time.RFC3339), nil
	},

	"email": func(v interface{}) (interface{}, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if !textutil.IsEmail(s) {
			return nil, errors.Newf("invalid email %q", s)
		}
		return s, nil
	},

	"url": func(v interface{}) (interface{}, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if !textutil.IsURL(s) {
			return nil, errors.Newf("invalid URL %q", s)
		}
		return s, nil
	},
}

func stringOp(fn func(string) string) FieldFunc {
	return func(v interface{}) (interface{}, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

// FieldOp returns the named field conversion. See FieldOps for the names.
func FieldOp(name string) (FieldFunc, error) {
	fn, ok := fieldOps[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.WithHintf(
			errors.Newf("unknown field operation %q", name),
			"valid operations: %s", strings.Join(FieldOps(), ", "),
		)
	}
	return fn, nil
}

// MustFieldOp is like FieldOp but panics on an unknown name.
func MustFieldOp(name string) FieldFunc {
	fn, err := FieldOp(name)
	if err != nil {
		panic(err)
	}
	return fn
}

// FieldOps lists the names accepted by FieldOp in sorted order.
func FieldOps() []string {
	names := make([]string, 0, len(fieldOps))
	for name := range fieldOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
