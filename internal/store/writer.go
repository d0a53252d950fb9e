package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/jravan/ingest/internal/catalog"
	"github.com/jravan/ingest/internal/jvrecord"
)

// ErrSchemaDrift is the sentinel wrapped by SchemaDriftError. A parsed
// record carrying a column the catalog never declared is a programmer
// error — a parser and its table definition have drifted apart — not a
// runtime condition the pipeline can recover from.
var ErrSchemaDrift = errors.New("store: schema drift")

// SchemaDriftError names the table and column that triggered ErrSchemaDrift.
type SchemaDriftError struct {
	Table  string
	Column string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("%s: table %s has no column %s", ErrSchemaDrift, e.Table, e.Column)
}

func (e *SchemaDriftError) Unwrap() error {
	return ErrSchemaDrift
}

// ErrUnknownTable is returned when Write names a table absent from the catalog.
var ErrUnknownTable = errors.New("store: unknown table")

// RealtimePublisher receives every row belonging to an RT/TS-family table
// immediately after it is durably committed. Implemented by
// internal/realtime.Publisher; a Writer with none configured simply skips
// this side channel.
type RealtimePublisher interface {
	Publish(ctx context.Context, table string, row jvrecord.Row) error
}

// Writer is the Ingest Writer: it accumulates parsed rows per table inside
// one transaction and upserts them on Flush, keyed by each table's declared
// primary key so re-ingesting the same vendor file is idempotent. Not safe
// for concurrent use across goroutines without external synchronization —
// the orchestrator drives one Writer from one read loop at a time.
type Writer struct {
	db       *Connection
	catalog  *catalog.Catalog
	logger   *slog.Logger
	realtime RealtimePublisher

	mu         sync.Mutex
	tx         *sql.Tx
	pending    map[string][][]any        // table -> rows of bound values, in table.Columns order
	published  map[string][]jvrecord.Row // table -> rows staged for the realtime side channel
	queryCache map[string]upsertQuery
}

type upsertQuery struct {
	sql     string
	columns []string
}

// NewWriter builds a Writer bound to one pooled connection and the static
// table catalog it upserts against.
func NewWriter(db *Connection, cat *catalog.Catalog, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		db:         db,
		catalog:    cat,
		logger:     logger,
		pending:    make(map[string][][]any),
		published:  make(map[string][]jvrecord.Row),
		queryCache: make(map[string]upsertQuery),
	}
}

// WithRealtimePublisher attaches the Realtime Publisher side channel and
// returns the same Writer for chaining at construction time.
func (w *Writer) WithRealtimePublisher(p RealtimePublisher) *Writer {
	w.realtime = p

	return w
}

// Write stages one parsed row against table, checking every column the row
// names against the catalog's declared column set first. A row naming an
// undeclared column fails closed with SchemaDriftError instead of silently
// dropping or mis-binding the value.
func (w *Writer) Write(table string, row jvrecord.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	meta, ok := w.catalog.Describe(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	columnSet := meta.ColumnSet()
	for col := range row {
		if _, declared := columnSet[col]; !declared {
			return &SchemaDriftError{Table: table, Column: col}
		}
	}

	values := make([]any, len(meta.Columns))

	for i, col := range meta.Columns {
		raw, present := row[col.Name]
		if !present || (raw == "" && col.Nullable) {
			values[i] = nil

			continue
		}

		values[i] = raw
	}

	w.pending[table] = append(w.pending[table], values)

	if w.realtime != nil && isRealtimeFamilyTable(table) {
		w.published[table] = append(w.published[table], row)
	}

	return nil
}

func isRealtimeFamilyTable(table string) bool {
	return strings.HasPrefix(table, "RT_") || strings.HasPrefix(table, "TS_")
}

// Flush commits every staged row in one transaction, one upsert statement
// per row, grouped table by table. On any execution failure the
// transaction is rolled back and the error is classified (connection
// exception vs. constraint violation) only for the log line; either way
// every row staged since the last successful Flush is lost and must be
// re-read by the caller, since a failed statement aborts the whole
// transaction in PostgreSQL.
func (w *Writer) Flush() error {
	return w.FlushContext(context.Background())
}

// FlushContext is Flush with an explicit context, used by callers that
// already carry one (the orchestrator's per-cycle context).
func (w *Writer) FlushContext(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning flush transaction: %w", err)
	}

	w.tx = tx

	for table, rows := range w.pending {
		query, buildErr := w.upsertQueryFor(table)
		if buildErr != nil {
			_ = tx.Rollback()
			w.tx = nil

			return buildErr
		}

		for _, values := range rows {
			if _, execErr := tx.ExecContext(ctx, query.sql, values...); execErr != nil {
				_ = tx.Rollback()
				w.tx = nil

				w.logFlushError(table, execErr)

				return fmt.Errorf("store: upserting into %s: %w", table, execErr)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		w.tx = nil

		return fmt.Errorf("store: committing flush transaction: %w", err)
	}

	w.tx = nil
	w.pending = make(map[string][][]any)

	w.publishCommitted(ctx)

	return nil
}

// publishCommitted hands every row staged since the last Flush to the
// Realtime Publisher, now that it is durably committed. Publish failures
// are logged, not returned: the side channel never reopens or fails an
// already-successful Flush.
func (w *Writer) publishCommitted(ctx context.Context) {
	if w.realtime == nil {
		return
	}

	for table, rows := range w.published {
		for _, row := range rows {
			if err := w.realtime.Publish(ctx, table, row); err != nil {
				w.logger.Warn("realtime publish failed", slog.String("table", table), slog.String("error", err.Error()))
			}
		}
	}

	w.published = make(map[string][]jvrecord.Row)
}

// Close rolls back any transaction left open by an interrupted Flush. The
// underlying Connection is owned by the caller and is never closed here.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tx != nil {
		_ = w.tx.Rollback()
		w.tx = nil
	}

	return nil
}

func (w *Writer) upsertQueryFor(table string) (upsertQuery, error) {
	if cached, ok := w.queryCache[table]; ok {
		return cached, nil
	}

	meta, ok := w.catalog.Describe(table)
	if !ok {
		return upsertQuery{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	if len(meta.PrimaryKey) == 0 {
		return upsertQuery{}, fmt.Errorf("store: table %s has no primary key, cannot upsert", table)
	}

	pkSet := make(map[string]struct{}, len(meta.PrimaryKey))
	for _, pk := range meta.PrimaryKey {
		pkSet[pk] = struct{}{}
	}

	columns := make([]string, len(meta.Columns))
	placeholders := make([]string, len(meta.Columns))
	var updateSets []string

	for i, col := range meta.Columns {
		columns[i] = col.Name
		placeholders[i] = fmt.Sprintf("$%d", i+1)

		if _, isPK := pkSet[col.Name]; !isPK {
			updateSets = append(updateSets, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(col.Name), quoteIdent(col.Name)))
		}
	}

	quotedColumns := make([]string, len(columns))
	for i, c := range columns {
		quotedColumns[i] = quoteIdent(c)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quotedColumns, ", "), strings.Join(placeholders, ", "))
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO ", quoteIdentList(meta.PrimaryKey))

	if len(updateSets) == 0 {
		b.WriteString("NOTHING")
	} else {
		b.WriteString("UPDATE SET ")
		b.WriteString(strings.Join(updateSets, ", "))
	}

	q := upsertQuery{sql: b.String(), columns: columns}
	w.queryCache[table] = q

	return q, nil
}

func (w *Writer) logFlushError(table string, err error) {
	if isConnectionError(err) {
		w.logger.Warn("flush failed: database connection error", slog.String("table", table), slog.String("error", err.Error()))

		return
	}

	w.logger.Error("flush failed: statement error", slog.String("table", table), slog.String("error", err.Error()))
}

// isConnectionError reports whether err indicates a transient PostgreSQL
// connection failure (Class 08) rather than a constraint or data error,
// distinguishing the two only for logging: either way the transaction is
// already aborted and every staged row must be re-read and retried.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(strings.ToLower(name), `"`, `""`) + `"`
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}

	return strings.Join(quoted, ", ")
}
