package batch

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/textutil"
)

// Accessor fetches the auxiliary payload a named data source holds for the
// item at index. It may block. Returning an error or a nil payload never
// fails the item; the transform receives a nil value instead.
type Accessor func(ctx context.Context, index int) (map[string]interface{}, error)

// AccessorBinding associates a human-readable source name with an Accessor.
type AccessorBinding struct {
	// Name is the source name, for example "Ingestion Sources". It must
	// normalize to a non-empty key that is unique within a run.
	Name string

	// Accessor fetches the per-item payload.
	Accessor Accessor
}

// Bind is a convenience constructor for AccessorBinding.
func Bind(name string, acc Accessor) AccessorBinding {
	return AccessorBinding{Name: name, Accessor: acc}
}

// NormalizeName converts a source name into the key used in Aux:
// punctuation, whitespace, hyphens and underscores separate words, the first
// word is lowercased and the following words are capitalized.
//
//	NormalizeName("Ingestion Sources") // "ingestionSources"
//	NormalizeName("API_Config-v2")     // "apiConfigV2"
func NormalizeName(name string) string {
	return textutil.LowerCamel(name)
}

// AuxValue is the value one accessor produced for an item.
type AuxValue struct {
	// Name is the accessor's name as registered.
	Name string
	// Key is the normalized name.
	Key string
	// Value is the fetched payload, or nil if the accessor failed.
	Value map[string]interface{}
}

// Aux holds the accessor values for one item in registration order.
type Aux []AuxValue

// At returns the value of the i-th accessor, or nil if there is none.
func (a Aux) At(i int) map[string]interface{} {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i].Value
}

// Get returns the value of the accessor with the given key. Both the
// normalized key and the original name are accepted.
func (a Aux) Get(key string) map[string]interface{} {
	norm := NormalizeName(key)
	for _, v := range a {
		if v.Key == key || v.Key == norm {
			return v.Value
		}
	}
	return nil
}

// Values returns the accessor values in registration order.
func (a Aux) Values() []map[string]interface{} {
	out := make([]map[string]interface{}, len(a))
	for i, v := range a {
		out[i] = v.Value
	}
	return out
}

// Map returns the accessor values keyed by normalized name.
func (a Aux) Map() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(a))
	for _, v := range a {
		out[v.Key] = v.Value
	}
	return out
}

// boundAccessor is an AccessorBinding resolved for one run.
type boundAccessor struct {
	name string
	key  string
	fn   Accessor
}

// fetch calls the accessor, converting a panic into an error.
func (b boundAccessor) fetch(ctx context.Context, index int) (v map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Newf("accessor panicked: %v", r)
		}
	}()
	return b.fn(ctx, index)
}

// resolveAccessors validates the bindings and fixes their order and keys for
// a run. If compat carries a retry policy every accessor is wrapped with it.
func resolveAccessors(bindings []AccessorBinding, compat *Compat, logger Logger, stats StatsCollector) ([]boundAccessor, error) {
	seen := make(map[string]string, len(bindings))
	out := make([]boundAccessor, 0, len(bindings))

	for i, b := range bindings {
		if b.Accessor == nil {
			return nil, invalidArgf("accessor %d (%q) is nil", i, b.Name)
		}

		key := NormalizeName(b.Name)
		if key == "" {
			return nil, invalidArgf("accessor %d: name %q has no letters or digits", i, b.Name)
		}
		if prev, ok := seen[key]; ok {
			return nil, errors.WithHint(
				invalidArgf("accessors %q and %q both normalize to %q", prev, b.Name, key),
				"rename one of the accessors",
			)
		}
		seen[key] = b.Name

		fn := b.Accessor
		if compat != nil && compat.Retry != nil {
			fn = WithRetry(b.Name, fn, *compat.Retry, logger, stats)
		}

		out = append(out, boundAccessor{name: b.Name, key: key, fn: fn})
	}

	return out, nil
}
