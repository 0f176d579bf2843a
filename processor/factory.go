package processor

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

// FieldsConfig provides configuration options for creating a Fields
// transform from operation names, as read from flags or config files.
type FieldsConfig struct {
	// Ops maps a payload field to the name of a FieldOp.
	// This field is required.
	Ops map[string]string
}

// Validate checks if the FieldsConfig is valid.
func (c FieldsConfig) Validate() error {
	if len(c.Ops) == 0 {
		return errors.New("at least one field operation is required")
	}
	for field, op := range c.Ops {
		if strings.TrimSpace(field) == "" {
			return errors.Newf("empty field name for operation %q", op)
		}
		if _, err := FieldOp(op); err != nil {
			return errors.Wrapf(err, "field %q", field)
		}
	}
	return nil
}

// NewFields creates a Fields transform with the given configuration.
// It validates the configuration and returns an error if invalid.
//
// Example:
//
//	fn, err := processor.NewFields(processor.FieldsConfig{
//		Ops: map[string]string{
//			"timeout": "duration",
//			"file":    "filename",
//		},
//	})
//	if err != nil {
//		// handle error
//	}
func NewFields(config FieldsConfig) (batch.TransformFunc, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid fields config")
	}

	fields := make(map[string]FieldFunc, len(config.Ops))
	for field, op := range config.Ops {
		fields[field] = MustFieldOp(op)
	}
	return Fields(fields), nil
}

// ParseFieldSpecs reads "field:op" pairs into a FieldsConfig. The field name
// is everything before the last colon, so field names may contain colons.
func ParseFieldSpecs(specs []string) (FieldsConfig, error) {
	config := FieldsConfig{Ops: make(map[string]string, len(specs))}
	for _, spec := range specs {
		i := strings.LastIndex(spec, ":")
		if i <= 0 || i == len(spec)-1 {
			return FieldsConfig{}, errors.WithHint(
				errors.Newf("malformed field spec %q", spec),
				`use "field:operation", for example "title:strip_html"`,
			)
		}
		config.Ops[strings.TrimSpace(spec[:i])] = strings.TrimSpace(spec[i+1:])
	}
	return config, nil
}
