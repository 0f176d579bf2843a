package batch

import "time"

// Defaults used when the corresponding Options field is left at its zero
// value.
const (
	// DefaultSampleErrors is the number of ErrorRecords copied into
	// RunStats.SampleErrors.
	DefaultSampleErrors = 5

	// DefaultConcurrency processes items strictly one after another.
	DefaultConcurrency = 1

	// DefaultSettleDelay is the settling delay used by N8NCompat. n8n can
	// expose other nodes' outputs to a Code node slightly after execution
	// starts, and this wait covers that window.
	DefaultSettleDelay = 150 * time.Millisecond

	// maxContextValueLength caps string values copied into Failure.Context.
	maxContextValueLength = 100
)

// DefaultContextFields lists the payload keys copied into Failure.Context
// when Options.ContextFields is empty.
var DefaultContextFields = []string{"id", "uuid", "key", "name", "title", "email", "url", "slug"}
