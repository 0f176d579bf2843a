// Package batch contains the core item processing functionality. The main
// type is Batch, which can be created using New. It iterates an ordered slice
// of Items, gathers auxiliary per-item data from named accessors, calls a
// TransformFunc for every item and records either a success or a structured
// Failure for each one. A failing item never aborts the run unless
// Options.StopOnError is set.
//
// Every run returns a Run holding exactly one Result per processed item, in
// input order, paired with the item's original index:
//
//	run, err := batch.ProcessBatch(ctx, items, transform, accessors, nil)
//	if err != nil {
//		// Invalid arguments or context cancellation. Per-item failures are
//		// never returned here.
//	}
//	for _, res := range run.Results {
//		if !res.OK() {
//			fmt.Println(res.Index, res.Failure.Message)
//		}
//	}
//
// Accessors are resolved once per run into a fixed, ordered list. Their names
// are normalized to lower camel case ("Ingestion Sources" becomes
// "ingestionSources") and the fetched values are handed to the transform as an
// Aux list in registration order. An accessor that fails contributes a nil
// value; the transform decides whether that matters.
//
// Some hosts make auxiliary data visible only shortly after a run starts. The
// Compat options provide an explicit shim for that: a settling delay before
// the first item and a bounded exponential RetryPolicy wrapped around every
// accessor. Both are off unless configured.
package batch
