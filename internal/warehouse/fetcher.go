// Package warehouse fetches query results from the relational source into
// record tables, paging the cursor in fixed-size chunks.
package warehouse

import (
	"context"
	"database/sql"
	"strings"
	"time"

	// database/sql drivers for every supported wire protocol
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/snowflakedb/gosnowflake"

	"vetbiz/internal/observability"
	"vetbiz/internal/record"
	"vetbiz/pkg/errors"
)

// DefaultBatchSize is the number of rows pulled from the cursor per chunk
const DefaultBatchSize = 10000

// OpenFunc opens a database handle; sql.Open in production
type OpenFunc func(driverName, dataSourceName string) (*sql.DB, error)

// ChunkProgress is reported after every chunk is accumulated
type ChunkProgress struct {
	Name      string
	Chunk     int
	ChunkRows int
	TotalRows int
}

// Fetcher executes one query per call against the warehouse. Each call
// opens exactly one connection and closes it before returning.
type Fetcher struct {
	config    Config
	open      OpenFunc
	batchSize int
	logger    *observability.Logger
	onChunk   func(ChunkProgress)
	onTable   func(name string, err error)
	metrics   *observability.MetricsRegistry
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithBatchSize sets the rows per chunk; non-positive values are ignored
func WithBatchSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithOpener replaces sql.Open
func WithOpener(open OpenFunc) Option {
	return func(f *Fetcher) {
		if open != nil {
			f.open = open
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *observability.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithChunkCallback registers a progress callback
func WithChunkCallback(fn func(ChunkProgress)) Option {
	return func(f *Fetcher) {
		f.onChunk = fn
	}
}

// WithTableCallback registers a callback run after each table of FetchTables
func WithTableCallback(fn func(name string, err error)) Option {
	return func(f *Fetcher) {
		f.onTable = fn
	}
}

// WithMetrics records per-query row, chunk and timing metrics in reg
func WithMetrics(reg *observability.MetricsRegistry) Option {
	return func(f *Fetcher) {
		f.metrics = reg
	}
}

// NewFetcher creates a new fetcher
func NewFetcher(config Config, opts ...Option) *Fetcher {
	f := &Fetcher{
		config:    config,
		open:      sql.Open,
		batchSize: DefaultBatchSize,
		logger:    observability.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BatchSize returns the configured rows per chunk
func (f *Fetcher) BatchSize() int {
	return f.batchSize
}

// Fetch runs query and materializes the full result. The returned table is
// never nil: on any failure it is empty and err describes the fault, so
// callers must check err (or the row count) before trusting the data.
func (f *Fetcher) Fetch(ctx context.Context, name, query string) (*record.Table, error) {
	start := time.Now()
	log := f.logger.WithFields(map[string]interface{}{
		"query_name": name,
		"driver":     string(f.config.Driver),
	})

	table, chunks, err := f.fetch(ctx, name, query)
	f.observe(name, table, chunks, time.Since(start), err)
	if err != nil {
		log.ErrorWithFields("Fetch failed", map[string]interface{}{"error": err})
		return record.Empty(), err
	}

	log.InfoWithFields("Fetch complete", map[string]interface{}{
		"rows":    table.Len(),
		"columns": table.Width(),
		"chunks":  chunks,
		"elapsed": time.Since(start).String(),
	})
	return table, nil
}

func (f *Fetcher) observe(name string, table *record.Table, chunks int, elapsed time.Duration, err error) {
	if f.metrics == nil {
		return
	}
	labels := map[string]string{"query": name}
	f.metrics.Histogram("fetch_duration_seconds", "Time spent fetching a query", labels, nil).
		Observe(elapsed.Seconds())
	if err != nil {
		f.metrics.Counter("fetch_errors_total", "Failed fetches", labels).Inc()
		return
	}
	f.metrics.Counter("fetch_rows_total", "Rows fetched", labels).Add(float64(table.Len()))
	f.metrics.Counter("fetch_chunks_total", "Cursor chunks read", labels).Add(float64(chunks))
}

func (f *Fetcher) fetch(ctx context.Context, name, query string) (*record.Table, int, error) {
	dsn, err := f.config.DSN()
	if err != nil {
		return nil, 0, err
	}

	db, err := f.open(string(f.config.Driver), dsn)
	if err != nil {
		return nil, 0, errors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("host", f.config.Host)
	}
	defer db.Close()

	// One connection per fetch; no pooling across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, 0, classifyConnectError(err, f.config)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, 0, errors.QueryError("Failed to execute query", query, err).
			WithContext("query_name", name)
	}
	defer rows.Close()

	columns, err := columnsOf(rows)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeScanFailed, "Failed to read result metadata").
			WithContext("query_name", name)
	}

	table := record.NewTable(columns...)
	chunks := 0
	for {
		chunk, err := f.readChunk(rows, len(columns))
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeScanFailed, "Failed to scan result rows").
				WithContext("query_name", name).
				WithContext("rows_read", table.Len())
		}
		if len(chunk) == 0 {
			break
		}

		table.Rows = append(table.Rows, chunk...)
		chunks++

		f.logger.DebugWithFields("Chunk fetched", map[string]interface{}{
			"query_name": name,
			"chunk":      chunks,
			"chunk_rows": len(chunk),
			"total_rows": table.Len(),
		})
		if f.onChunk != nil {
			f.onChunk(ChunkProgress{Name: name, Chunk: chunks, ChunkRows: len(chunk), TotalRows: table.Len()})
		}

		if len(chunk) < f.batchSize {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, 0, errors.QueryError("Result cursor failed", query, err).
			WithContext("query_name", name)
	}

	return table, chunks, nil
}

// readChunk pulls up to batchSize rows from the cursor
func (f *Fetcher) readChunk(rows *sql.Rows, width int) ([]record.Row, error) {
	chunk := make([]record.Row, 0, min(f.batchSize, 1024))
	for len(chunk) < f.batchSize && rows.Next() {
		values := make([]interface{}, width)
		valuePtrs := make([]interface{}, width)
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(record.Row, width)
		for i, v := range values {
			row[i] = record.Normalize(v)
		}
		chunk = append(chunk, row)
	}
	return chunk, nil
}

// columnsOf reads the result schema once, from cursor metadata
func columnsOf(rows *sql.Rows) ([]record.Column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]record.Column, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		if !ok {
			nullable = true
		}
		columns[i] = record.Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     nullable,
		}
	}
	return columns, nil
}

func classifyConnectError(err error, config Config) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "login failed") ||
		strings.Contains(msg, "incorrect username or password") {
		return errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Authentication failed").
			WithContext("user", config.User).
			WithSuggestions(
				"Verify DB_USER and DB_PASSWORD",
				"Check the user is allowed to connect from this host",
			)
	}
	return errors.ConnectionError("Failed to connect to warehouse", err).
		WithContext("address", config.Redacted())
}
