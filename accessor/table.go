// Package accessor provides data sources for batch accessors: an in-memory
// table of named outputs and a SQL-backed lookup.
//
// Both look up the auxiliary payload a named source holds for an item index
// and hand out batch.AccessorBindings for use with batch.ProcessBatch. A
// Coalescer turns the per-item calls of a concurrent run into bulk fetches.
package accessor

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

// ErrNotFound is returned when a source holds no payload for an index.
var ErrNotFound = errors.New("no data for item")

// Table holds the outputs of named sources, each an ordered list of payloads
// addressed by item index. It models the "outputs of other nodes" a workflow
// host exposes. A Table is safe for concurrent use, so outputs may be filled
// while a run is reading them.
type Table struct {
	mu      sync.RWMutex
	outputs map[string][]map[string]interface{}
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{outputs: make(map[string][]map[string]interface{})}
}

// Set replaces the output of the named source.
func (t *Table) Set(name string, payloads []map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outputs == nil {
		t.outputs = make(map[string][]map[string]interface{})
	}
	t.outputs[name] = append([]map[string]interface{}(nil), payloads...)
}

// Append adds payloads to the end of the named source's output.
func (t *Table) Append(name string, payloads ...map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outputs == nil {
		t.outputs = make(map[string][]map[string]interface{})
	}
	t.outputs[name] = append(t.outputs[name], payloads...)
}

// Len returns the number of payloads the named source holds.
func (t *Table) Len(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.outputs[name])
}

// Names returns the source names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.outputs))
	for name := range t.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the payload the named source holds for index. It returns an
// error wrapping ErrNotFound if the source is unknown, the index is out of
// range or the payload there is nil.
func (t *Table) Get(ctx context.Context, name string, index int) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out, ok := t.outputs[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "unknown source %q", name)
	}
	if index < 0 || index >= len(out) || out[index] == nil {
		return nil, errors.Wrapf(ErrNotFound, "source %q has no item %d", name, index)
	}
	return out[index], nil
}

// Accessor returns a batch.Accessor reading the named source.
func (t *Table) Accessor(name string) batch.Accessor {
	return func(ctx context.Context, index int) (map[string]interface{}, error) {
		return t.Get(ctx, name, index)
	}
}

// Binding returns a batch.AccessorBinding for the named source.
func (t *Table) Binding(name string) batch.AccessorBinding {
	return batch.Bind(name, t.Accessor(name))
}

// Bindings returns a binding for every source, ordered by name.
func (t *Table) Bindings() []batch.AccessorBinding {
	names := t.Names()
	out := make([]batch.AccessorBinding, len(names))
	for i, name := range names {
		out[i] = t.Binding(name)
	}
	return out
}
