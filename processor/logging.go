package processor

import (
	"context"
	"time"

	"github.com/n8nkit/itembatch/batch"
)

// Logging wraps fn and logs every call at debug level with the item index and
// duration. Failures stay at debug level since the batch runner already
// reports every failed item. name identifies the transform in the log; if
// empty, "transform" is used. A nil logger returns fn unchanged.
//
// Example:
//
//	logger := batch.NewConsoleLogger(batch.LogLevelDebug)
//	wrapped := processor.Logging(myTransform, logger, "enrich")
func Logging(fn batch.TransformFunc, logger batch.Logger, name string) batch.TransformFunc {
	if fn == nil {
		fn = Identity()
	}
	if logger == nil {
		return fn
	}
	if name == "" {
		name = "transform"
	}

	return func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		start := time.Now()
		out, err := fn(ctx, item, payload, index, aux)
		duration := time.Since(start)

		if err != nil {
			logger.Debugw("Transform failed",
				"transform", name,
				"index", index,
				"duration", duration,
				"error", err,
			)
			return out, err
		}

		logger.Debugw("Transform completed",
			"transform", name,
			"index", index,
			"duration", duration,
			"aux", len(aux),
		)
		return out, nil
	}
}
