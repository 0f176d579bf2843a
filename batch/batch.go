package batch

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TransformFunc turns one item into its output value. aux holds one entry per
// registered accessor, in registration order; an entry's Value is nil when
// its accessor failed for this item. payload is item.Payload and must not be
// modified. A returned error, or a panic, fails the item and nothing else.
type TransformFunc func(ctx context.Context, item Item, payload map[string]interface{}, index int, aux Aux) (interface{}, error)

// Batch runs a TransformFunc over items, producing one Result per item in
// input order. Item failures are reported as data in the returned Run and
// never abort the other items, unless Options.StopOnError is set.
//
// To create a new Batch, call New. Creating one using &Batch{} will also work
// and uses DefaultOptions.
//
//	// The following are equivalent:
//	b1 := &batch.Batch{}
//	b2 := batch.New(nil)
//	b3 := batch.New(batch.DefaultOptions())
//
// A Batch holds no per-run state and can be used for any number of runs,
// including concurrent ones.
//
//	run, err := b.Process(ctx, items, transform,
//		batch.Bind("Ingestion Sources", sources),
//	)
//	if err != nil {
//		// Validation error or cancelled context.
//	}
//	for _, res := range run.Results {
//		...
//	}
type Batch struct {
	opts *Options

	mu     sync.Mutex
	logger Logger
	stats  StatsCollector
}

// New creates a new Batch using the provided options. If opts is nil,
// DefaultOptions is used. The options are copied.
func New(opts *Options) *Batch {
	b := &Batch{}
	if opts != nil {
		c := *opts
		b.opts = &c
	}
	return b
}

// WithLogger sets a custom logger for the Batch. If not set, no logging
// occurs (uses NoOpLogger internally).
//
// Example:
//
//	b := batch.New(nil).WithLogger(batch.NewConsoleLogger(batch.LogLevelInfo))
func (b *Batch) WithLogger(logger Logger) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logger = logger
	return b
}

// WithStats sets a custom stats collector for the Batch. If not set, no
// statistics are collected (uses NoOpStatsCollector internally).
//
// Example:
//
//	stats := batch.NewBasicStatsCollector()
//	b := batch.New(nil).WithStats(stats)
//
//	// Later, retrieve statistics
//	currentStats := stats.GetStats()
func (b *Batch) WithStats(stats StatsCollector) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats = stats
	return b
}

// ProcessBatch is a shortcut for New(opts).Process(ctx, items, fn, accessors...).
func ProcessBatch(ctx context.Context, items []Item, fn TransformFunc, accessors []AccessorBinding, opts *Options) (*Run, error) {
	return New(opts).Process(ctx, items, fn, accessors...)
}

// Process runs fn over items and returns the results.
//
// Arguments are validated before any item is processed; malformed arguments
// return a ValidationError and a nil Run. Items are then processed in order.
// For each item every accessor is called in registration order, and fn
// receives their values as Aux. The index of each item is its position in
// items, whatever Item.Index the caller set.
//
// The returned error is nil unless arguments were invalid or ctx was done
// before every item was processed. In the latter case the Run holds the items
// processed so far.
func (b *Batch) Process(ctx context.Context, items []Item, fn TransformFunc, accessors ...AccessorBinding) (*Run, error) {
	if fn == nil {
		return nil, invalidArgf("transform function is nil")
	}
	if err := b.opts.Validate(); err != nil {
		return nil, err
	}
	opts := b.opts.withDefaults()

	b.mu.Lock()
	logger, stats := b.logger, b.stats
	b.mu.Unlock()
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if stats == nil {
		stats = &NoOpStatsCollector{}
	}

	bound, err := resolveAccessors(accessors, opts.Compat, logger, stats)
	if err != nil {
		return nil, err
	}

	r := &runner{
		opts:      opts,
		logger:    logger,
		stats:     stats,
		fn:        fn,
		accessors: bound,
		items:     items,

		failedAccessors: make([][]string, len(items)),
	}
	runID := uuid.NewString()
	start := time.Now()

	stats.RecordRunStart(len(items))
	logger.Debugw("Batch run started",
		"run_id", runID,
		"items", len(items),
		"accessors", len(bound),
		"concurrency", opts.Concurrency,
	)

	var (
		results []Result
		stopped bool
		runErr  error
	)
	if opts.Compat != nil {
		runErr = settle(ctx, opts.Compat.SettleDelay)
	}
	if runErr == nil {
		if opts.Concurrency > 1 && len(items) > 1 {
			results, stopped, runErr = r.runConcurrent(ctx)
		} else {
			results, stopped, runErr = r.runSequential(ctx)
		}
	}

	run := r.finish(runID, results, stopped, time.Since(start))
	stats.RecordRunComplete(run.Stats)

	if runErr != nil {
		logger.Warnw("Batch run interrupted",
			"run_id", runID,
			"processed", run.Stats.Total,
			"items", len(items),
			"error", runErr,
		)
		return run, errors.Wrap(runErr, "batch run interrupted")
	}

	logger.Infow("Batch run completed",
		"run_id", runID,
		"total", run.Stats.Total,
		"successful", run.Stats.Successful,
		"failed", run.Stats.Failed,
		"stopped", run.Stats.Stopped,
		"duration", run.Stats.Duration,
	)
	return run, nil
}

// settle waits d once, returning early with the context error if ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// runner holds the state of a single run.
type runner struct {
	opts      Options
	logger    Logger
	stats     StatsCollector
	fn        TransformFunc
	accessors []boundAccessor
	items     []Item

	// failedAccessors holds, per item index, the names of the accessors
	// that failed for that item. Each index is written only by the
	// goroutine processing it.
	failedAccessors [][]string
}

func (r *runner) runSequential(ctx context.Context) ([]Result, bool, error) {
	results := make([]Result, 0, len(r.items))

	for i := range r.items {
		if err := ctx.Err(); err != nil {
			return results, false, err
		}

		res := r.processItem(ctx, i)
		results = append(results, res)

		if !res.OK() && r.opts.StopOnError {
			return results, true, nil
		}
	}

	return results, false, nil
}

// runConcurrent processes up to Concurrency items at once. Items are started
// in input order and results are written by index. With StopOnError no item
// is started once a failure has been seen, and the results end at the lowest
// failing index.
func (r *runner) runConcurrent(ctx context.Context) ([]Result, bool, error) {
	var (
		results   = make([]Result, len(r.items))
		done      = make([]bool, len(r.items))
		mu        sync.Mutex
		firstFail = -1
		g         errgroup.Group
	)
	g.SetLimit(r.opts.Concurrency)

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstFail >= 0
	}

	for i := range r.items {
		if ctx.Err() != nil || failed() {
			break
		}

		i := i
		g.Go(func() error {
			res := r.processItem(ctx, i)

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			done[i] = true
			if !res.OK() && r.opts.StopOnError && (firstFail < 0 || i < firstFail) {
				firstFail = i
			}
			return nil
		})
	}
	_ = g.Wait()

	if firstFail >= 0 {
		return results[:firstFail+1], true, ctx.Err()
	}

	n := 0
	for n < len(done) && done[n] {
		n++
	}
	if n < len(results) {
		return results[:n], false, ctx.Err()
	}
	return results, false, nil
}

func (r *runner) processItem(ctx context.Context, i int) Result {
	item := r.items[i]
	item.Index = i

	aux := r.gather(ctx, i)

	out, err := r.call(ctx, item, aux)
	if err != nil {
		return r.fail(item, err)
	}

	r.stats.RecordItemProcessed()
	return Result{Index: i, Payload: out}
}

// gather calls every accessor for the item at index. Failed accessors and
// nil payloads yield a nil value; an empty object is passed through.
func (r *runner) gather(ctx context.Context, index int) Aux {
	if len(r.accessors) == 0 {
		return Aux{}
	}

	aux := make(Aux, len(r.accessors))
	for j, acc := range r.accessors {
		v, err := acc.fetch(ctx, index)
		if err == nil && v == nil {
			err = ErrEmptyAccessorResult
		}
		if err != nil {
			r.accessorFailed(acc, index, err)
			v = nil
		}
		aux[j] = AuxValue{Name: acc.name, Key: acc.key, Value: v}
	}
	return aux
}

func (r *runner) accessorFailed(acc boundAccessor, index int, err error) {
	r.stats.RecordAccessorError(acc.name)
	r.failedAccessors[index] = append(r.failedAccessors[index], acc.name)

	if r.opts.LogErrors {
		r.logger.Warnw("Accessor failed, using nil",
			"accessor", acc.name,
			"key", acc.key,
			"index", index,
			"error_kind", KindAccessor,
			"error", AccessorError{Name: acc.name, Index: index, Err: err},
		)
	}
}

// call invokes the transform, converting a panic into an error.
func (r *runner) call(ctx context.Context, item Item, aux Aux) (out interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, panicError(p)
		}
	}()
	return r.fn(ctx, item, item.Payload, item.Index, aux)
}

func (r *runner) fail(item Item, err error) Result {
	f := &Failure{
		Kind:      KindProcessing,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		Context:   captureContext(item.Payload, r.opts.ContextFields),
		Err:       ProcessingError{Index: item.Index, Err: err},
	}

	r.stats.RecordItemError(f.Kind)
	if r.opts.LogErrors {
		r.logger.Errorw("Item failed",
			"index", item.Index,
			"error_kind", f.Kind,
			"error", err,
			"context", f.Context,
		)
	}

	return Result{Index: item.Index, Failure: f}
}

// finish assembles the Run from the collected results.
func (r *runner) finish(runID string, results []Result, stopped bool, d time.Duration) *Run {
	if results == nil {
		results = []Result{}
	}

	errs := make([]ErrorRecord, 0)
	for _, res := range results {
		if !res.OK() {
			errs = append(errs, newErrorRecord(res, r.items[res.Index]))
		}
	}

	stats := summarize(results, errs, r.opts.SampleErrors)
	stats.RunID = runID
	stats.Stopped = stopped
	stats.Duration = d

	for _, res := range results {
		for _, name := range r.failedAccessors[res.Index] {
			if stats.AccessorErrors == nil {
				stats.AccessorErrors = make(map[string]int)
			}
			stats.AccessorErrors[name]++
		}
	}

	return &Run{
		Results: results,
		Errors:  errs,
		Stats:   stats,
	}
}
