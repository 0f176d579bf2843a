package commands

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/n8nkit/itembatch/accessor"
	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/metrics"
	"github.com/n8nkit/itembatch/processor"
	"github.com/n8nkit/itembatch/source"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrItemsFailed is returned by run --strict when at least one item failed.
var ErrItemsFailed = errors.New("items failed")

type runOptions struct {
	*rootOptions

	items       string
	aux         []string
	fields      []string
	require     []string
	stopOnError bool
	concurrency int
	n8n         bool
	strict      bool
	output      string
	metricsOut  string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a JSON document of items",
		Long: `Process every item of a JSON document and print the run as JSON.

The document is an array of objects, an array of n8n items ({"json": {...}})
or a single object. Each --aux file is loaded the same way and exposed to the
transform by item position under its normalized name.

Items are checked with --require first, then every --field operation is
applied. Without either, items pass through unchanged.

Examples:
  itembatch run --items items.json --require id --field title:strip_html
  itembatch run --items items.json --aux "Ingestion Sources=sources.json" --n8n
  itembatch run --items items.json --output items --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.items, "items", "i", "", `Items file ("-" for stdin)`)
	f.StringArrayVar(&o.aux, "aux", nil, `Auxiliary source as "Name=FILE" (repeatable)`)
	f.StringArrayVarP(&o.fields, "field", "f", nil, `Field operation as "field:op" (repeatable)`)
	f.StringSliceVarP(&o.require, "require", "r", nil, "Fields every item must have")
	f.BoolVar(&o.stopOnError, "stop-on-error", false, "Stop after the first failed item")
	f.IntVar(&o.concurrency, "concurrency", 0, "Items processed at the same time")
	f.BoolVar(&o.n8n, "n8n", false, "Enable the n8n settle delay and accessor retries")
	f.BoolVar(&o.strict, "strict", false, "Exit with an error when any item failed")
	f.StringVarP(&o.output, "output", "o", "run", "Output shape (run/items/payloads)")
	f.StringVar(&o.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file after the run")
	_ = cmd.MarkFlagRequired("items")

	return cmd
}

func (o *runOptions) run(cmd *cobra.Command) error {
	switch o.output {
	case "run", "items", "payloads":
	default:
		return errors.Newf("unknown output %q (want run, items or payloads)", o.output)
	}

	cfg, logger, err := o.load(cmd)
	if err != nil {
		return err
	}
	if s, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	opts := cfg.Options()
	if cmd.Flags().Changed("stop-on-error") {
		opts.StopOnError = o.stopOnError
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = o.concurrency
	}
	if o.n8n {
		opts.Compat = batch.N8NCompat()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := source.NewFile(source.FileConfig{Path: o.items})
	if err != nil {
		return err
	}
	items, err := src.Items(ctx)
	if err != nil {
		return err
	}

	bindings, err := loadAux(ctx, o.aux)
	if err != nil {
		return err
	}

	fn, err := o.transform()
	if err != nil {
		return err
	}
	fn = processor.Logging(fn, logger, "run")

	var stats batch.StatsCollector = batch.NewBasicStatsCollector()
	var reg *prometheus.Registry
	if o.metricsOut != "" {
		reg = prometheus.NewRegistry()
		pc, err := metrics.NewPrometheusCollector(reg, "")
		if err != nil {
			return err
		}
		stats = pc
	}

	run, runErr := batch.New(opts).WithLogger(logger).WithStats(stats).Process(ctx, items, fn, bindings...)
	if run == nil {
		return runErr
	}

	if err := o.print(cmd, run); err != nil {
		return err
	}
	if reg != nil {
		if err := prometheus.WriteToTextfile(o.metricsOut, reg); err != nil {
			return errors.Wrapf(err, "write metrics to %s", o.metricsOut)
		}
	}
	if runErr != nil {
		return runErr
	}
	if o.strict && run.Stats.Failed > 0 {
		return errors.Wrapf(ErrItemsFailed, "%d of %d", run.Stats.Failed, run.Stats.Total)
	}
	return nil
}

func (o *runOptions) transform() (batch.TransformFunc, error) {
	var steps []batch.TransformFunc
	if len(o.require) > 0 {
		steps = append(steps, processor.Require(o.require...))
	}
	if len(o.fields) > 0 {
		fc, err := processor.ParseFieldSpecs(o.fields)
		if err != nil {
			return nil, err
		}
		fields, err := processor.NewFields(fc)
		if err != nil {
			return nil, err
		}
		steps = append(steps, fields)
	}
	if len(steps) == 0 {
		return processor.Identity(), nil
	}
	return processor.Chain(steps...), nil
}

func (o *runOptions) print(cmd *cobra.Command, run *batch.Run) error {
	var v interface{} = run
	switch o.output {
	case "items":
		v = run.Items()
	case "payloads":
		v = run.Payloads()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	data = append(data, '\n')
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// loadAux reads "Name=FILE" specs into a table and returns its bindings in
// flag order.
func loadAux(ctx context.Context, specs []string) ([]batch.AccessorBinding, error) {
	table := accessor.NewTable()
	bindings := make([]batch.AccessorBinding, 0, len(specs))

	for _, spec := range specs {
		name, path, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(path) == "" {
			return nil, errors.WithHint(
				errors.Newf("malformed aux spec %q", spec),
				`use "Name=FILE", for example "Ingestion Sources=sources.json"`,
			)
		}

		src, err := source.NewFile(source.FileConfig{Path: path})
		if err != nil {
			return nil, errors.Wrapf(err, "aux %q", name)
		}
		items, err := src.Items(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "aux %q", name)
		}

		payloads := make([]map[string]interface{}, len(items))
		for i, item := range items {
			payloads[i] = item.Payload
		}
		table.Set(name, payloads)
		bindings = append(bindings, table.Binding(name))
	}
	return bindings, nil
}
