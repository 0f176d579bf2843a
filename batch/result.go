package batch

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/n8nkit/itembatch/textutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// noStackTrace is used for ErrorRecord.Stack when the error carries no stack.
const noStackTrace = "(no stack trace)"

// Failure describes why an item could not be processed. Failures are data:
// they are returned in results instead of being raised.
type Failure struct {
	Kind      ErrorKind              `json:"errorKind"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"capturedContext,omitempty"`

	// Err is the underlying error. It is not serialized.
	Err error `json:"-"`
}

// Map returns the failure as a JSON-ready map with an "error" marker, the
// form used for n8n output items.
func (f *Failure) Map() map[string]interface{} {
	m := map[string]interface{}{
		"error":     true,
		"errorKind": string(f.Kind),
		"message":   f.Message,
		"timestamp": f.Timestamp.Format(time.RFC3339Nano),
	}
	if len(f.Context) > 0 {
		m["capturedContext"] = f.Context
	}
	return m
}

// Result is the outcome of one item. Exactly one of Payload (on success) and
// Failure is meaningful.
type Result struct {
	// Index is the position of the item in the input.
	Index int

	// Payload is the transform's return value.
	Payload interface{}

	// Failure is set when the item failed.
	Failure *Failure
}

// OK reports whether the item succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Value returns the payload of a successful result or the failure.
func (r Result) Value() interface{} {
	if r.Failure != nil {
		return r.Failure
	}
	return r.Payload
}

// MarshalJSON encodes the result as {"payload": ..., "index": ...}, with the
// failure in place of the payload for failed items.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Payload interface{} `json:"payload"`
		Index   int         `json:"index"`
	}{
		Payload: r.Value(),
		Index:   r.Index,
	})
}

// Item shapes the result as an n8n output item paired with its input item:
//
//	{"json": {...}, "pairedItem": {"item": 3}}
//
// Payloads that are not objects are wrapped as {"value": payload}.
func (r Result) Item() map[string]interface{} {
	var body map[string]interface{}
	switch {
	case r.Failure != nil:
		body = r.Failure.Map()
	default:
		if m, ok := r.Payload.(map[string]interface{}); ok {
			body = m
		} else {
			body = map[string]interface{}{"value": r.Payload}
		}
	}

	return map[string]interface{}{
		"json":       body,
		"pairedItem": map[string]interface{}{"item": r.Index},
	}
}

// ErrorRecord is a Failure with extra diagnostics for the run's error list.
type ErrorRecord struct {
	Failure

	// Index is the position of the failed item.
	Index int `json:"index"`

	// Stack is the stack trace attached to the error, if any.
	Stack string `json:"stack"`

	// Item is a shallow copy of the failed item's payload.
	Item map[string]interface{} `json:"item,omitempty"`
}

func newErrorRecord(res Result, item Item) ErrorRecord {
	return ErrorRecord{
		Failure: *res.Failure,
		Index:   res.Index,
		Stack:   stackOf(res.Failure.Err),
		Item:    item.snapshot(),
	}
}

// Run is everything a batch run produced.
type Run struct {
	// Results holds one entry per processed item in input order.
	Results []Result `json:"results"`

	// Errors holds the failed items only, in input order.
	Errors []ErrorRecord `json:"errors"`

	// Stats summarizes the run.
	Stats RunStats `json:"stats"`
}

// Items returns the results as n8n output items. See Result.Item.
func (r *Run) Items() []map[string]interface{} {
	out := make([]map[string]interface{}, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Item()
	}
	return out
}

// Payloads returns the payloads of the successful results in order.
func (r *Run) Payloads() []interface{} {
	out := make([]interface{}, 0, len(r.Results))
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res.Payload)
		}
	}
	return out
}

// captureContext copies the identifying fields of a payload.
func captureContext(payload map[string]interface{}, fields []string) map[string]interface{} {
	var out map[string]interface{}
	for _, f := range fields {
		v, ok := payload[f]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			v = textutil.Truncate(s, maxContextValueLength)
		}
		if out == nil {
			out = make(map[string]interface{}, len(fields))
		}
		out[f] = v
	}
	return out
}

// stackOf renders the first stack trace found in err's chain.
func stackOf(err error) string {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if errors.GetReportableStackTrace(e) != nil {
			return fmt.Sprintf("%+v", e)
		}
	}
	return noStackTrace
}
