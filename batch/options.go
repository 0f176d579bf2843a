package batch

import "time"

// Options controls a run. Create one with DefaultOptions; a zero Options
// value disables LogErrors.
type Options struct {
	// LogErrors emits a diagnostic for every failed item and every failed
	// accessor call.
	LogErrors bool `json:"logErrors"`

	// StopOnError halts the run after the first failed item. The results then
	// end with that item; the run still returns normally.
	StopOnError bool `json:"stopOnError"`

	// SampleErrors is the number of ErrorRecords copied into
	// RunStats.SampleErrors. Zero means DefaultSampleErrors.
	SampleErrors int `json:"sampleErrors"`

	// ContextFields lists the payload keys captured into Failure.Context.
	// Empty means DefaultContextFields.
	ContextFields []string `json:"contextFields,omitempty"`

	// Concurrency is the number of items processed at the same time. Zero
	// means DefaultConcurrency. Results keep input order either way.
	Concurrency int `json:"concurrency"`

	// Compat enables host compatibility workarounds. Nil disables them.
	Compat *Compat `json:"compat,omitempty"`
}

// Compat holds workarounds for hosts that make auxiliary data visible only
// some time after a run starts. They paper over that race; they do not
// guarantee that accessors eventually succeed.
type Compat struct {
	// SettleDelay is waited once before the first item is processed.
	SettleDelay time.Duration `json:"settleDelay"`

	// Retry, if set, wraps every accessor with WithRetry.
	Retry *RetryPolicy `json:"retry,omitempty"`
}

// DefaultOptions returns the default options: errors are logged, the run
// continues past failures and items are processed sequentially.
func DefaultOptions() *Options {
	return &Options{
		LogErrors:    true,
		SampleErrors: DefaultSampleErrors,
		Concurrency:  DefaultConcurrency,
	}
}

// N8NCompat returns the workaround settings that match the n8n Code node
// host: a DefaultSettleDelay wait and DefaultRetryPolicy on every accessor.
func N8NCompat() *Compat {
	retry := DefaultRetryPolicy()
	return &Compat{
		SettleDelay: DefaultSettleDelay,
		Retry:       &retry,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	if o.SampleErrors < 0 {
		return invalidArgf("SampleErrors cannot be negative (got %d)", o.SampleErrors)
	}
	if o.Concurrency < 0 {
		return invalidArgf("Concurrency cannot be negative (got %d)", o.Concurrency)
	}
	if o.Compat != nil {
		if o.Compat.SettleDelay < 0 {
			return invalidArgf("Compat.SettleDelay cannot be negative (got %v)", o.Compat.SettleDelay)
		}
		if o.Compat.Retry != nil {
			if err := o.Compat.Retry.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// withDefaults returns a copy of the options with zero values replaced by
// defaults. A nil receiver yields DefaultOptions.
func (o *Options) withDefaults() Options {
	if o == nil {
		o = DefaultOptions()
	}

	c := *o
	if c.SampleErrors == 0 {
		c.SampleErrors = DefaultSampleErrors
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if len(c.ContextFields) == 0 {
		c.ContextFields = DefaultContextFields
	}
	if c.Compat != nil {
		compat := *c.Compat
		if compat.Retry != nil {
			retry := compat.Retry.withDefaults()
			compat.Retry = &retry
		}
		c.Compat = &compat
	}
	return c
}
