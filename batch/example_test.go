package batch_test

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/n8nkit/itembatch/batch"
)

func Example() {
	items := batch.NewItems(
		map[string]interface{}{"id": 1, "title": "first"},
		map[string]interface{}{"id": 2},
		map[string]interface{}{"id": 3, "title": "third"},
	)

	// sources plays the role of another node's output, looked up by index.
	sources := func(ctx context.Context, index int) (map[string]interface{}, error) {
		return map[string]interface{}{"source": fmt.Sprintf("feed-%d", index)}, nil
	}

	transform := func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		title, ok := payload["title"].(string)
		if !ok {
			return nil, errors.New("Missing field: title")
		}
		return map[string]interface{}{
			"title":  title,
			"source": aux.Get("ingestionSources")["source"],
		}, nil
	}

	run, err := batch.ProcessBatch(context.Background(), items, transform,
		[]batch.AccessorBinding{batch.Bind("Ingestion Sources", sources)}, nil)
	if err != nil {
		fmt.Println("run failed:", err)
		return
	}

	for _, res := range run.Results {
		if res.OK() {
			p := res.Payload.(map[string]interface{})
			fmt.Println(res.Index, p["title"], p["source"])
		} else {
			fmt.Println(res.Index, res.Failure.Kind, res.Failure.Message)
		}
	}
	fmt.Printf("%d/%d succeeded\n", run.Stats.Successful, run.Stats.Total)

	// Output:
	// 0 first feed-0
	// 1 processing_error Missing field: title
	// 2 third feed-2
	// 2/3 succeeded
}

func ExampleNormalizeName() {
	fmt.Println(batch.NormalizeName("Ingestion Sources"))
	fmt.Println(batch.NormalizeName("API_Config-v2"))
	// Output:
	// ingestionSources
	// apiConfigV2
}

func ExampleOptions_stopOnError() {
	opts := batch.DefaultOptions()
	opts.StopOnError = true

	transform := func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		if index == 2 {
			return nil, errors.New("bad item")
		}
		return index, nil
	}

	items := batch.NewItems(
		map[string]interface{}{}, map[string]interface{}{}, map[string]interface{}{},
		map[string]interface{}{}, map[string]interface{}{},
	)
	run, _ := batch.ProcessBatch(context.Background(), items, transform, nil, opts)

	fmt.Println(len(run.Results), len(run.Errors), run.Stats.Stopped)
	// Output: 3 1 true
}
