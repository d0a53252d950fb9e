package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// execer is satisfied by *sql.DB and *sql.Tx; CreateSchema only needs
// ExecContext, so it works against either a bare connection or an
// in-progress transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateSchema idempotently creates every table and index declared in the
// catalog. Safe to re-invoke: every statement uses IF NOT EXISTS.
//
// Columns are declared TEXT by default with a handful of semantic-type
// overrides (int/decimal) applied where the catalog's declared type asks
// for them; the Ingest Writer still treats every bound value as a
// parameter, so a conservative TEXT-heavy schema never forces it to quote
// or cast at the SQL-text level.
func (c *Catalog) CreateSchema(ctx context.Context, db execer) error {
	for _, table := range c.tables {
		if err := c.createTable(ctx, db, table); err != nil {
			return err
		}

		for _, idxCol := range table.Indexes {
			if err := c.createIndex(ctx, db, table, idxCol); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *Catalog) createTable(ctx context.Context, db execer, table TableMeta) error {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(table.Table))

	for i, col := range table.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}

		fmt.Fprintf(&b, "  %s %s", quoteIdent(col.Name), sqlType(col.Type))

		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}

	if len(table.PrimaryKey) > 0 {
		b.WriteString(",\n  PRIMARY KEY (")
		b.WriteString(quoteIdentList(table.PrimaryKey))
		b.WriteString(")")
	}

	b.WriteString("\n)")

	if _, err := db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("catalog: creating table %s: %w", table.Table, err)
	}

	return nil
}

func (c *Catalog) createIndex(ctx context.Context, db execer, table TableMeta, column string) error {
	idxName := fmt.Sprintf("idx_%s_%s", strings.ToLower(table.Table), strings.ToLower(column))
	stmt := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(idxName), quoteIdent(table.Table), quoteIdent(column),
	)

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("catalog: creating index %s on %s: %w", idxName, table.Table, err)
	}

	return nil
}

func sqlType(semanticType string) string {
	switch strings.ToUpper(semanticType) {
	case "INTEGER", "INT":
		return "BIGINT"
	case "DECIMAL", "NUMERIC":
		return "NUMERIC"
	case "REAL", "FLOAT":
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
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
