package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

type errorSource struct {
	err error
}

// Error returns a Source whose Items always fails with err. It is useful for
// testing error handling around a run. A nil err is replaced by a generic
// one.
func Error(err error) Source {
	if err == nil {
		err = errors.New("source error")
	}
	return &errorSource{err: err}
}

func (s *errorSource) Items(context.Context) ([]batch.Item, error) {
	return nil, s.err
}
