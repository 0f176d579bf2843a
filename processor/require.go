package processor

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

// Require returns a transform that fails an item whose payload lacks one of
// fields, with the message "Missing field: <name>". A field is missing when
// it is absent, nil, or a blank string. Items that have every field are
// passed through like Identity.
func Require(fields ...string) batch.TransformFunc {
	required := append([]string(nil), fields...)

	return func(_ context.Context, _ batch.Item, payload map[string]interface{}, _ int, _ batch.Aux) (interface{}, error) {
		for _, f := range required {
			if missing(payload, f) {
				return nil, errors.Newf("Missing field: %s", f)
			}
		}
		return copyPayload(payload), nil
	}
}

func missing(payload map[string]interface{}, field string) bool {
	v, ok := payload[field]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}
