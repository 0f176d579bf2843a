package processor

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

// PayloadFunc transforms an item payload into the item's output.
type PayloadFunc func(payload map[string]interface{}) (interface{}, error)

// Payload adapts a PayloadFunc to a batch.TransformFunc. A nil fn passes the
// payload through.
func Payload(fn PayloadFunc) batch.TransformFunc {
	if fn == nil {
		return Identity()
	}
	return func(_ context.Context, _ batch.Item, payload map[string]interface{}, _ int, _ batch.Aux) (interface{}, error) {
		return fn(payload)
	}
}

// Identity returns a transform whose output is a shallow copy of the payload.
func Identity() batch.TransformFunc {
	return func(_ context.Context, _ batch.Item, payload map[string]interface{}, _ int, _ batch.Aux) (interface{}, error) {
		return copyPayload(payload), nil
	}
}

// Fail returns a transform that fails every item with err. A nil err is
// replaced by a generic one.
func Fail(err error) batch.TransformFunc {
	if err == nil {
		err = errors.New("item rejected")
	}
	return func(context.Context, batch.Item, map[string]interface{}, int, batch.Aux) (interface{}, error) {
		return nil, err
	}
}

// Chain runs fns in order. Each step receives the previous step's output as
// its payload, so every step but the last must return an object
// (map[string]interface{}). The first error stops the chain and is returned
// unchanged. Nil steps are skipped; an empty chain behaves like Identity.
func Chain(fns ...batch.TransformFunc) batch.TransformFunc {
	steps := make([]batch.TransformFunc, 0, len(fns))
	for _, fn := range fns {
		if fn != nil {
			steps = append(steps, fn)
		}
	}
	if len(steps) == 0 {
		return Identity()
	}

	return func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		cur := payload
		var out interface{}
		for i, step := range steps {
			v, err := step(ctx, item, cur, index, aux)
			if err != nil {
				return nil, err
			}
			out = v

			if i == len(steps)-1 {
				break
			}
			m, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.Newf("chain step %d returned %T, want an object", i, v)
			}
			cur = m
		}
		return out, nil
	}
}

// PredicateFunc decides whether a transform applies to an item.
type PredicateFunc func(payload map[string]interface{}) bool

// When applies fn to items matching pred and passes the others through
// unchanged, like Identity.
func When(pred PredicateFunc, fn batch.TransformFunc) batch.TransformFunc {
	if pred == nil || fn == nil {
		return Identity()
	}
	identity := Identity()
	return func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		if !pred(payload) {
			return identity(ctx, item, payload, index, aux)
		}
		return fn(ctx, item, payload, index, aux)
	}
}

func copyPayload(payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
