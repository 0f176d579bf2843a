package accessor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/textutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults for SQLConfig.
const (
	DefaultTable         = "node_outputs"
	DefaultNameColumn    = "node_name"
	DefaultIndexColumn   = "item_index"
	DefaultPayloadColumn = "payload"
)

// SQLConfig provides configuration options for creating a SQL accessor.
type SQLConfig struct {
	// DB is the database to query.
	// This field is required.
	DB *sql.DB

	// Query selects a single JSON object column given the source name and the
	// item index, in that order. If empty, it is built from the table and
	// column names below with "?" placeholders.
	Query string

	Table         string
	NameColumn    string
	IndexColumn   string
	PayloadColumn string
}

// Validate checks if the SQLConfig is valid.
func (c SQLConfig) Validate() error {
	if c.DB == nil {
		return errors.New("database cannot be nil")
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (c SQLConfig) query() string {
	if c.Query != "" {
		return c.Query
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		textutil.EscapeSQLIdentifier(orDefault(c.PayloadColumn, DefaultPayloadColumn)),
		textutil.EscapeSQLIdentifier(orDefault(c.Table, DefaultTable)),
		textutil.EscapeSQLIdentifier(orDefault(c.NameColumn, DefaultNameColumn)),
		textutil.EscapeSQLIdentifier(orDefault(c.IndexColumn, DefaultIndexColumn)),
	)
}

// manyQuery returns the statement prefix for multi-index lookups, or "" when
// a custom Query is configured.
func (c SQLConfig) manyQuery() string {
	if c.Query != "" {
		return ""
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = ? AND %s IN ",
		textutil.EscapeSQLIdentifier(orDefault(c.IndexColumn, DefaultIndexColumn)),
		textutil.EscapeSQLIdentifier(orDefault(c.PayloadColumn, DefaultPayloadColumn)),
		textutil.EscapeSQLIdentifier(orDefault(c.Table, DefaultTable)),
		textutil.EscapeSQLIdentifier(orDefault(c.NameColumn, DefaultNameColumn)),
		textutil.EscapeSQLIdentifier(orDefault(c.IndexColumn, DefaultIndexColumn)),
	)
}

// SQL reads source outputs stored as JSON objects in a database table, one
// row per source name and item index.
type SQL struct {
	db        *sql.DB
	query     string
	manyQuery string
}

// NewSQL creates a SQL accessor source with the given configuration.
// It validates the configuration and returns an error if invalid.
//
// Example:
//
//	src, err := accessor.NewSQL(accessor.SQLConfig{DB: db})
//	if err != nil {
//		// handle error
//	}
//	run, err := batch.ProcessBatch(ctx, items, transform,
//		[]batch.AccessorBinding{src.Binding("Ingestion Sources")}, nil)
func NewSQL(config SQLConfig) (*SQL, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid SQL accessor config")
	}
	return &SQL{db: config.DB, query: config.query(), manyQuery: config.manyQuery()}, nil
}

// Query returns the SQL statement used for lookups.
func (s *SQL) Query() string {
	return s.query
}

// Get returns the payload stored for the named source and index. A missing
// row or a NULL payload yields an error wrapping ErrNotFound.
func (s *SQL) Get(ctx context.Context, name string, index int) (map[string]interface{}, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, s.query, name, index).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errors.Wrapf(ErrNotFound, "source %q has no item %d", name, index)
	case err != nil:
		return nil, errors.Wrapf(err, "query source %q item %d", name, index)
	case !raw.Valid:
		return nil, errors.Wrapf(ErrNotFound, "source %q item %d is NULL", name, index)
	}

	return decodePayload(raw.String, name, index)
}

func decodePayload(raw, name string, index int) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.Wrapf(err, "decode source %q item %d", name, index)
	}
	if payload == nil {
		return nil, errors.Wrapf(ErrNotFound, "source %q item %d is null", name, index)
	}
	return payload, nil
}

// GetMany returns the payloads stored for the named source at indexes in a
// single query. Indexes without a row or with a NULL payload are left out of
// the result. With a custom Query it falls back to one Get per index.
func (s *SQL) GetMany(ctx context.Context, name string, indexes []int) (map[int]map[string]interface{}, error) {
	out := make(map[int]map[string]interface{}, len(indexes))
	if len(indexes) == 0 {
		return out, nil
	}

	if s.manyQuery == "" {
		for _, index := range indexes {
			payload, err := s.Get(ctx, name, index)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[index] = payload
		}
		return out, nil
	}

	args := make([]interface{}, 0, len(indexes)+1)
	args = append(args, name)
	for _, index := range indexes {
		args = append(args, index)
	}
	query := s.manyQuery + "(" + strings.TrimSuffix(strings.Repeat("?, ", len(indexes)), ", ") + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query source %q", name)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			index int
			raw   sql.NullString
		)
		if err := rows.Scan(&index, &raw); err != nil {
			return nil, errors.Wrapf(err, "scan source %q", name)
		}
		if !raw.Valid {
			continue
		}
		payload, err := decodePayload(raw.String, name, index)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[index] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read source %q", name)
	}
	return out, nil
}

// Fetch returns a FetchFunc reading the named source with GetMany, for use
// with a Coalescer.
func (s *SQL) Fetch(name string) FetchFunc {
	return func(ctx context.Context, indexes []int) (map[int]map[string]interface{}, error) {
		return s.GetMany(ctx, name, indexes)
	}
}

// Accessor returns a batch.Accessor reading the named source.
func (s *SQL) Accessor(name string) batch.Accessor {
	return func(ctx context.Context, index int) (map[string]interface{}, error) {
		return s.Get(ctx, name, index)
	}
}

// Binding returns a batch.AccessorBinding for the named source.
func (s *SQL) Binding(name string) batch.AccessorBinding {
	return batch.Bind(name, s.Accessor(name))
}
