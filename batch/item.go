package batch

// Item is a single work item flowing through a run.
type Item struct {
	// Index is the 0-based position of the item in the input. It is assigned
	// by the processor from the input order and must not be relied upon before
	// that.
	Index int

	// Payload holds the item's JSON-compatible data. Transforms must treat it
	// as read-only.
	Payload map[string]interface{}
}

// NewItems wraps payloads into Items with their indexes set.
func NewItems(payloads ...map[string]interface{}) []Item {
	items := make([]Item, len(payloads))
	for i, p := range payloads {
		items[i] = Item{Index: i, Payload: p}
	}
	return items
}

// snapshot returns a shallow copy of the payload.
func (i Item) snapshot() map[string]interface{} {
	if i.Payload == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(i.Payload))
	for k, v := range i.Payload {
		cp[k] = v
	}
	return cp
}
