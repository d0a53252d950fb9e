package catalog

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlType(t *testing.T) {
	tests := []struct {
		name     string
		semantic string
		want     string
	}{
		{name: "integer", semantic: "INTEGER", want: "BIGINT"},
		{name: "int alias", semantic: "int", want: "BIGINT"},
		{name: "decimal", semantic: "DECIMAL", want: "NUMERIC"},
		{name: "numeric alias", semantic: "numeric", want: "NUMERIC"},
		{name: "real", semantic: "REAL", want: "DOUBLE PRECISION"},
		{name: "float alias", semantic: "float", want: "DOUBLE PRECISION"},
		{name: "text falls through", semantic: "TEXT", want: "TEXT"},
		{name: "unknown falls through to text", semantic: "JSONB", want: "TEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlType(tt.semantic))
		})
	}
}

// recordingExecer captures every statement passed to ExecContext instead of
// hitting a real database, so CreateSchema's generated SQL can be asserted
// on directly.
type recordingExecer struct {
	statements []string
}

func (e *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	e.statements = append(e.statements, query)

	return nil, nil
}

func TestCreateSchema_DeclaresRealColumnsAsDoublePrecision(t *testing.T) {
	cat := &Catalog{
		tables: map[string]TableMeta{
			"TS_O1": {
				Table:      "TS_O1",
				PrimaryKey: []string{"Year", "MonthDay"},
				Columns: []ColumnMeta{
					{Name: "Year", Type: "INTEGER"},
					{Name: "TanOdds", Type: "REAL", Nullable: true},
				},
			},
		},
	}

	exec := &recordingExecer{}
	require.NoError(t, cat.CreateSchema(context.Background(), exec))

	require.Len(t, exec.statements, 1)
	assert.Contains(t, exec.statements[0], `"tanodds" DOUBLE PRECISION`)
	assert.NotContains(t, exec.statements[0], `"tanodds" TEXT`)
}

func TestQuoteIdentList(t *testing.T) {
	got := quoteIdentList([]string{"Year", "MonthDay", "JyoCD"})
	assert.Equal(t, `"year", "monthday", "jyocd"`, got)
	assert.True(t, strings.HasPrefix(got, `"year"`))
}
