package accessor

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n8nkit/itembatch/batch"
)

func TestTable_Get(t *testing.T) {
	table := NewTable()
	table.Set("Ingestion Sources", []map[string]interface{}{
		{"feed": "a"},
		nil,
		{"feed": "c"},
	})

	ctx := context.Background()

	v, err := table.Get(ctx, "Ingestion Sources", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"feed": "c"}, v)

	for _, index := range []int{-1, 1, 3} {
		_, err := table.Get(ctx, "Ingestion Sources", index)
		assert.True(t, errors.Is(err, ErrNotFound), "index %d", index)
	}

	_, err = table.Get(ctx, "Unknown", 0)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), `unknown source "Unknown"`)
}

func TestTable_AppendAndNames(t *testing.T) {
	var table Table // zero value is usable
	table.Append("b", map[string]interface{}{"n": 1})
	table.Append("b", map[string]interface{}{"n": 2})
	table.Append("a")

	assert.Equal(t, []string{"a", "b"}, table.Names())
	assert.Equal(t, 2, table.Len("b"))
	assert.Equal(t, 0, table.Len("missing"))

	bindings := table.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "a", bindings[0].Name)
	assert.Equal(t, "b", bindings[1].Name)
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable()
	acc := table.Accessor("out")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			table.Append("out", map[string]interface{}{"i": i})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = acc(context.Background(), 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, table.Len("out"))
}

func TestTable_WithBatch(t *testing.T) {
	table := NewTable()
	table.Set("Ingestion Sources", []map[string]interface{}{{"feed": "a"}, {"feed": "b"}})

	items := batch.NewItems(
		map[string]interface{}{"id": 1},
		map[string]interface{}{"id": 2},
		map[string]interface{}{"id": 3},
	)
	fn := func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		src := aux.Get("ingestionSources")
		if src == nil {
			return "none", nil
		}
		return src["feed"], nil
	}

	run, err := batch.ProcessBatch(context.Background(), items, fn,
		[]batch.AccessorBinding{table.Binding("Ingestion Sources")}, nil)
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"a", "b", "none"}, run.Payloads())
	assert.Equal(t, map[string]int{"Ingestion Sources": 1}, run.Stats.AccessorErrors)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestSQL_Query(t *testing.T) {
	db, _ := newMock(t)

	src, err := NewSQL(SQLConfig{DB: db})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `payload` FROM `node_outputs` WHERE `node_name` = ? AND `item_index` = ?", src.Query())

	src, err = NewSQL(SQLConfig{DB: db, Table: "wf.outputs", PayloadColumn: "data"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `data` FROM `wf`.`outputs` WHERE `node_name` = ? AND `item_index` = ?", src.Query())

	src, err = NewSQL(SQLConfig{DB: db, Query: "SELECT data FROM t WHERE n = $1 AND i = $2"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT data FROM t WHERE n = $1 AND i = $2", src.Query())

	_, err = NewSQL(SQLConfig{})
	assert.Error(t, err)
}

func TestSQL_Get(t *testing.T) {
	db, mock := newMock(t)
	src, err := NewSQL(SQLConfig{DB: db})
	require.NoError(t, err)

	query := regexp.QuoteMeta(src.Query())
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("Ingestion Sources", 1).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"feed": "b", "n": 2}`))

		v, err := src.Get(ctx, "Ingestion Sources", 1)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"feed": "b", "n": 2.0}, v)
	})

	t.Run("no rows", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("Ingestion Sources", 9).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}))

		_, err := src.Get(ctx, "Ingestion Sources", 9)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("null payload", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("Ingestion Sources", 3).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(nil))

		_, err := src.Get(ctx, "Ingestion Sources", 3)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("not an object", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("Ingestion Sources", 4).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`[1, 2]`))

		_, err := src.Get(ctx, "Ingestion Sources", 4)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("Ingestion Sources", 5).
			WillReturnError(errors.New("connection reset"))

		_, err := src.Get(ctx, "Ingestion Sources", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestSQL_WithRetry(t *testing.T) {
	db, mock := newMock(t)
	src, err := NewSQL(SQLConfig{DB: db})
	require.NoError(t, err)
	query := regexp.QuoteMeta(src.Query())

	// The row only becomes visible on the second attempt.
	mock.ExpectQuery(query).WithArgs("Sources", 0).WillReturnRows(sqlmock.NewRows([]string{"payload"}))
	mock.ExpectQuery(query).WithArgs("Sources", 0).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"ok": true}`))

	opts := batch.DefaultOptions()
	opts.Compat = &batch.Compat{Retry: &batch.RetryPolicy{MaxAttempts: 3, BaseDelay: 1}}

	items := batch.NewItems(map[string]interface{}{"id": 1})
	run, err := batch.ProcessBatch(context.Background(), items, func(ctx context.Context, item batch.Item, payload map[string]interface{}, index int, aux batch.Aux) (interface{}, error) {
		return aux.At(0), nil
	}, []batch.AccessorBinding{src.Binding("Sources")}, opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"ok": true}, run.Results[0].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_GetMany(t *testing.T) {
	db, mock := newMock(t)
	src, err := NewSQL(SQLConfig{DB: db})
	require.NoError(t, err)

	query := regexp.QuoteMeta("SELECT `item_index`, `payload` FROM `node_outputs` WHERE `node_name` = ? AND `item_index` IN (?, ?, ?)")
	mock.ExpectQuery(query).
		WithArgs("Sources", 0, 1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"item_index", "payload"}).
			AddRow(2, `{"feed": "c"}`).
			AddRow(0, `{"feed": "a"}`).
			AddRow(1, nil))

	got, err := src.GetMany(context.Background(), "Sources", []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int]map[string]interface{}{
		0: {"feed": "a"},
		2: {"feed": "c"},
	}, got)

	got, err = src.GetMany(context.Background(), "Sources", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQL_GetManyCustomQuery(t *testing.T) {
	db, mock := newMock(t)
	src, err := NewSQL(SQLConfig{DB: db, Query: "SELECT data FROM t WHERE n = ? AND i = ?"})
	require.NoError(t, err)

	query := regexp.QuoteMeta(src.Query())
	mock.ExpectQuery(query).WithArgs("Sources", 0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(`{"n": 0}`))
	mock.ExpectQuery(query).WithArgs("Sources", 1).
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	got, err := src.Fetch("Sources")(context.Background(), []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, map[int]map[string]interface{}{0: {"n": 0.0}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
