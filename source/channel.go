package source

import (
	"context"

	"github.com/n8nkit/itembatch/batch"
)

type channelSource struct {
	in <-chan map[string]interface{}
}

// Channel returns a Source that drains in until it is closed. If ctx is done
// first, Items returns the context error. A nil channel yields no items.
//
// The Channel source does not close in.
func Channel(in <-chan map[string]interface{}) Source {
	return &channelSource{in: in}
}

func (s *channelSource) Items(ctx context.Context) ([]batch.Item, error) {
	if s.in == nil {
		return []batch.Item{}, nil
	}

	var payloads []map[string]interface{}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case p, ok := <-s.in:
			if !ok {
				return batch.NewItems(payloads...), nil
			}
			payloads = append(payloads, p)
		}
	}
}
