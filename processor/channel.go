package processor

import (
	"context"

	"github.com/n8nkit/itembatch/batch"
)

// Channel wraps fn and sends every successful output to out before
// returning it. Failed items are not sent. If ctx is done before the send
// completes the item fails with the context error.
//
// Ownership of the output channel remains with the caller. Because the
// transform is unaware of when the run has finished, it does not close the
// channel. The caller who created the channel should close it once
// processing is complete.
func Channel(fn batch.TransformFunc, out chan<- interface{}) batch.TransformFunc {
	if fn == nil {
		fn = Identity()
	}
	if out == nil {
		return fn
	}

	return func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		v, err := fn(ctx, item, payload, index, aux)
		if err != nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case out <- v:
		}
		return v, nil
	}
}
