package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice(t *testing.T) {
	items, err := Slice(map[string]interface{}{"a": 1}, map[string]interface{}{"a": 2}).Items(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for i, item := range items {
		if item.Index != i {
			t.Errorf("item %d has Index %d", i, item.Index)
		}
		if item.Payload["a"] != i+1 {
			t.Errorf("item %d payload = %v", i, item.Payload)
		}
	}
}

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []map[string]interface{}
	}{
		{
			name: "n8n items",
			doc:  `[{"json": {"id": 1}, "pairedItem": {"item": 0}}, {"json": {"id": 2}}]`,
			want: []map[string]interface{}{{"id": 1.0}, {"id": 2.0}},
		},
		{
			name: "plain objects",
			doc:  `[{"id": 1, "name": "a"}, {"id": 2}]`,
			want: []map[string]interface{}{{"id": 1.0, "name": "a"}, {"id": 2.0}},
		},
		{
			name: "single n8n item",
			doc:  `{"json": {"id": 7}}`,
			want: []map[string]interface{}{{"id": 7.0}},
		},
		{
			name: "single object",
			doc:  `{"id": 7}`,
			want: []map[string]interface{}{{"id": 7.0}},
		},
		{
			name: "json key that is not an object",
			doc:  `[{"json": "raw", "id": 1}]`,
			want: []map[string]interface{}{{"json": "raw", "id": 1.0}},
		},
		{
			name: "empty array",
			doc:  `[]`,
			want: []map[string]interface{}{},
		},
		{
			name: "null",
			doc:  `null`,
			want: []map[string]interface{}{},
		},
		{
			name: "empty input",
			doc:  ``,
			want: []map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := JSON(strings.NewReader(tt.doc)).Items(context.Background())
			require.NoError(t, err)
			require.Len(t, items, len(tt.want))
			for i, item := range items {
				assert.Equal(t, i, item.Index)
				assert.Equal(t, tt.want[i], item.Payload)
			}
		})
	}
}

func TestJSON_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		notObject bool
	}{
		{"syntax", `[{"id": 1`, false},
		{"scalar element", `[{"id": 1}, 5]`, true},
		{"string document", `"items"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSON(strings.NewReader(tt.doc)).Items(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.notObject, errors.Is(err, ErrNotAnObject))
		})
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"json": {"id": 1}}]`), 0o600))

	src, err := NewFile(FileConfig{Path: path})
	require.NoError(t, err)

	items, err := src.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1.0, items[0].Payload["id"])

	// Items can be read again.
	items, err = src.Items(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNewFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	for _, path := range []string{"", "  ", filepath.Join(dir, "missing.json"), dir} {
		if _, err := NewFile(FileConfig{Path: path}); err == nil {
			t.Errorf("NewFile(%q) expected error", path)
		}
	}

	if _, err := NewFile(FileConfig{Path: "-"}); err != nil {
		t.Errorf("NewFile(-) error = %v", err)
	}
}

func TestChannel(t *testing.T) {
	in := make(chan map[string]interface{}, 3)
	in <- map[string]interface{}{"n": 0}
	in <- map[string]interface{}{"n": 1}
	close(in)

	items, err := Channel(in).Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[1].Index)
	assert.Equal(t, 1, items[1].Payload["n"])

	items, err = Channel(nil).Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestChannel_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := make(chan map[string]interface{})
	defer close(in)

	_, err := Channel(in).Items(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestError(t *testing.T) {
	sentinel := errors.New("boom")
	items, err := Error(sentinel).Items(context.Background())
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, sentinel))

	_, err = Error(nil).Items(context.Background())
	assert.Error(t, err)
}
