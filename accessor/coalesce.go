package accessor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

// Defaults for CoalescerConfig.
const (
	DefaultCoalesceItems = 32
	DefaultCoalesceTime  = 5 * time.Millisecond
)

// ErrClosed is returned by Coalescer.Get after Close.
var ErrClosed = errors.New("coalescer closed")

// FetchFunc fetches the payloads of several item indexes at once. Indexes
// missing from the result are reported as ErrNotFound to their callers.
type FetchFunc func(ctx context.Context, indexes []int) (map[int]map[string]interface{}, error)

// CoalescerConfig provides configuration options for creating a Coalescer.
type CoalescerConfig struct {
	// Fetch performs the bulk lookup.
	// This field is required.
	Fetch FetchFunc

	// MaxItems flushes the pending lookups once this many are waiting.
	// Zero means DefaultCoalesceItems.
	MaxItems int

	// MaxTime flushes the pending lookups this long after the first one
	// arrived. Zero means DefaultCoalesceTime.
	MaxTime time.Duration
}

// Validate checks if the CoalescerConfig is valid.
func (c CoalescerConfig) Validate() error {
	if c.Fetch == nil {
		return errors.New("fetch function cannot be nil")
	}
	if c.MaxItems < 0 {
		return errors.Newf("MaxItems cannot be negative (got %d)", c.MaxItems)
	}
	if c.MaxTime < 0 {
		return errors.Newf("MaxTime cannot be negative (got %v)", c.MaxTime)
	}
	return nil
}

// Coalescer turns per-item accessor calls into bulk fetches. Lookups that
// arrive while a run processes items concurrently are collected until
// MaxItems are waiting or MaxTime has passed, then served by one Fetch call.
// Fetches run one at a time.
type Coalescer struct {
	config CoalescerConfig

	input chan *lookup
	done  chan struct{}

	// ctx is passed to Fetch and cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

type lookup struct {
	ctx      context.Context
	index    int
	response chan lookupResponse
}

type lookupResponse struct {
	payload map[string]interface{}
	err     error
}

func (l *lookup) send(payload map[string]interface{}, err error) {
	select {
	case l.response <- lookupResponse{payload: payload, err: err}:
	default:
		// Already answered.
	}
}

// NewCoalescer creates a Coalescer with the given configuration and starts
// its collecting goroutine. Call Close to stop it.
//
// Example:
//
//	c, err := accessor.NewCoalescer(accessor.CoalescerConfig{Fetch: src.Fetch("Ingestion Sources")})
//	if err != nil {
//		// handle error
//	}
//	defer c.Close()
//	run, err := batch.New(opts).Process(ctx, items, transform, c.Binding("Ingestion Sources"))
func NewCoalescer(config CoalescerConfig) (*Coalescer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid coalescer config")
	}
	if config.MaxItems == 0 {
		config.MaxItems = DefaultCoalesceItems
	}
	if config.MaxTime == 0 {
		config.MaxTime = DefaultCoalesceTime
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coalescer{
		config: config,
		input:  make(chan *lookup, config.MaxItems),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.loop()
	return c, nil
}

// Get returns the payload for index. It blocks until the bulk fetch that
// serves it completes or ctx is done.
func (c *Coalescer) Get(ctx context.Context, index int) (map[string]interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req := &lookup{
		ctx:      ctx,
		index:    index,
		response: make(chan lookupResponse, 1),
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClosed
	}
	select {
	case c.input <- req:
	case <-ctx.Done():
		c.mu.RUnlock()
		return nil, ctx.Err()
	}
	c.mu.RUnlock()

	select {
	case resp := <-req.response:
		return resp.payload, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Accessor returns Get as a batch.Accessor.
func (c *Coalescer) Accessor() batch.Accessor {
	return c.Get
}

// Binding returns a batch.AccessorBinding for Get under the given name.
func (c *Coalescer) Binding(name string) batch.AccessorBinding {
	return batch.Bind(name, c.Get)
}

// Close serves the lookups already queued, stops the collecting goroutine
// and waits for it to exit. It is safe to call more than once.
func (c *Coalescer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.input)
	c.mu.Unlock()

	<-c.done
	c.cancel()
}

func (c *Coalescer) loop() {
	defer close(c.done)

	var (
		pending []*lookup
		timer   *time.Timer
		timeout <-chan time.Time
	)

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timeout = nil, nil
		}
		if len(pending) > 0 {
			c.fetch(pending)
			pending = nil
		}
	}

	for {
		select {
		case req, ok := <-c.input:
			if !ok {
				flush()
				return
			}
			pending = append(pending, req)
			if len(pending) == 1 {
				timer = time.NewTimer(c.config.MaxTime)
				timeout = timer.C
			}
			if len(pending) >= c.config.MaxItems {
				flush()
			}
		case <-timeout:
			timer, timeout = nil, nil
			flush()
		}
	}
}

// fetch serves one batch of lookups.
func (c *Coalescer) fetch(pending []*lookup) {
	active := make([]*lookup, 0, len(pending))
	seen := make(map[int]bool, len(pending))
	indexes := make([]int, 0, len(pending))

	for _, req := range pending {
		if err := req.ctx.Err(); err != nil {
			req.send(nil, err)
			continue
		}
		active = append(active, req)
		if !seen[req.index] {
			seen[req.index] = true
			indexes = append(indexes, req.index)
		}
	}
	if len(active) == 0 {
		return
	}
	sort.Ints(indexes)

	payloads, err := c.config.Fetch(c.ctx, indexes)
	if err != nil {
		for _, req := range active {
			req.send(nil, err)
		}
		return
	}

	for _, req := range active {
		payload, ok := payloads[req.index]
		if !ok || payload == nil {
			req.send(nil, errors.Wrapf(ErrNotFound, "index %d", req.index))
			continue
		}
		req.send(payload, nil)
	}
}
