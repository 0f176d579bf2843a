package source

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/n8nkit/itembatch/batch"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotAnObject is returned when a JSON document holds something other than
// objects where items are expected.
var ErrNotAnObject = errors.New("item is not a JSON object")

type jsonSource struct {
	r    io.Reader
	path string
}

// JSON returns a Source decoding r. The document may be
//
//   - an array of n8n items: [{"json": {...}, "pairedItem": ...}, ...]
//   - an array of plain objects: [{...}, {...}]
//   - a single object of either form.
//
// An element counts as an n8n item when it has an object-valued "json" key;
// the other item keys are dropped. Numbers decode as float64. r is read on
// the first call to Items.
func JSON(r io.Reader) Source {
	return &jsonSource{r: r}
}

// File returns a JSON Source reading the file at path. The file is opened on
// every call to Items.
func File(path string) Source {
	return &jsonSource{path: path}
}

func (s *jsonSource) Items(ctx context.Context) ([]batch.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := s.r
	if s.path != "" {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, errors.Wrapf(err, "open items file %s", s.path)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		return nil, errors.New("no JSON input")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read items")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []batch.Item{}, nil
	}
	if !json.Valid(data) {
		return nil, errors.New("decode items: malformed JSON")
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}

	payloads, err := DecodeItems(doc)
	if err != nil {
		return nil, err
	}
	return batch.NewItems(payloads...), nil
}

// DecodeItems extracts item payloads from a decoded JSON document. See JSON
// for the accepted shapes. A null document yields no items.
func DecodeItems(doc interface{}) ([]map[string]interface{}, error) {
	switch v := doc.(type) {
	case nil:
		return []map[string]interface{}{}, nil
	case map[string]interface{}:
		return []map[string]interface{}{unwrapItem(v)}, nil
	case []interface{}:
		out := make([]map[string]interface{}, len(v))
		for i, el := range v {
			m, ok := el.(map[string]interface{})
			if !ok {
				return nil, errors.Wrapf(ErrNotAnObject, "item %d is %T", i, el)
			}
			out[i] = unwrapItem(m)
		}
		return out, nil
	default:
		return nil, errors.Wrapf(ErrNotAnObject, "document is %T", doc)
	}
}

func unwrapItem(m map[string]interface{}) map[string]interface{} {
	if inner, ok := m["json"].(map[string]interface{}); ok {
		return inner
	}
	return m
}
