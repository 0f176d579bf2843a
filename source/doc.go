// Package source contains several implementations of the Source interface,
// which loads the items of a run, including:
//
// - Slice: For in-memory payloads
// - JSON and File: For n8n item documents and plain JSON arrays
// - Channel: For draining an existing channel
// - Error: For simulating failing sources
//
// Every source sets Item.Index to the item's position.
//
// Basic usage of the JSON source:
//
//	src := source.JSON(strings.NewReader(`[{"json": {"id": 1}}, {"json": {"id": 2}}]`))
//	items, err := src.Items(context.Background())
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(len(items), items[1].Payload["id"])
//
// Output:
//
//	2 2
package source
