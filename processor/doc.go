// Package processor contains building blocks for batch.TransformFunc,
// including:
//
// - Payload: For transforms that only look at the item payload
// - Chain: For running several transforms one after another
// - Fields: For formatting individual payload fields
// - Require: For failing items that lack mandatory fields
// - When: For applying a transform to matching items only
// - Logging: For logging every call of a transform
// - Channel: For forwarding outputs to a channel
// - Fail and Identity: For tests and placeholders
//
// Every building block returns a plain batch.TransformFunc, so they compose
// freely and can be passed straight to batch.ProcessBatch.
//
// Basic usage:
//
//	transform := processor.Chain(
//		processor.Require("id", "title"),
//		processor.Fields(map[string]processor.FieldFunc{
//			"title": processor.MustFieldOp("strip_html"),
//		}),
//	)
//
//	run, err := batch.ProcessBatch(ctx, items, transform, nil, nil)
package processor
