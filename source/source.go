package source

import (
	"context"

	"github.com/n8nkit/itembatch/batch"
)

// Source reads the items of one run.
type Source interface {
	// Items returns every item in input order with Index set to the
	// position. It may block; it must return when ctx is done.
	Items(ctx context.Context) ([]batch.Item, error)
}

type sliceSource struct {
	payloads []map[string]interface{}
}

// Slice returns a Source over in-memory payloads. The payloads are not
// copied.
func Slice(payloads ...map[string]interface{}) Source {
	return &sliceSource{payloads: payloads}
}

func (s *sliceSource) Items(ctx context.Context) ([]batch.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return batch.NewItems(s.payloads...), nil
}
