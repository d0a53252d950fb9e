package mcpdescriptor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jravan/ingest/internal/catalog"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cat, err := catalog.Load()
	require.NoError(t, err)

	return NewServer(cat)
}

func makeRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)

	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "result content is %T, not TextContent", result.Content[0])

	return tc.Text
}

func TestHandleDescribeTable_ReturnsTableMetadata(t *testing.T) {
	s := testServer(t)

	req := makeRequest("describe_table", map[string]any{"table": "NL_RA"})
	result, err := s.handleDescribeTable(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var meta catalog.TableMeta
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &meta))
	assert.Equal(t, "NL_RA", meta.Table)
	assert.NotEmpty(t, meta.PrimaryKey)
}

func TestHandleDescribeTable_UnknownTableIsAToolError(t *testing.T) {
	s := testServer(t)

	req := makeRequest("describe_table", map[string]any{"table": "NOT_A_TABLE"})
	result, err := s.handleDescribeTable(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDescribeTable_MissingTableIsAToolError(t *testing.T) {
	s := testServer(t)

	req := makeRequest("describe_table", map[string]any{})
	result, err := s.handleDescribeTable(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleMapFieldName_MapsKnownLegacyLabel(t *testing.T) {
	s := testServer(t)
	cat, err := catalog.Load()
	require.NoError(t, err)

	meta, ok := cat.Describe("NL_RA")
	require.True(t, ok)

	var legacyLabel string
	for _, col := range meta.Columns {
		if col.LegacyLabel != "" {
			legacyLabel = col.LegacyLabel

			break
		}
	}
	require.NotEmpty(t, legacyLabel, "fixture table must declare at least one legacy label")

	req := makeRequest("map_field_name", map[string]any{"label": legacyLabel})
	result, err := s.handleMapFieldName(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out mapFieldNameResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, cat.MapFieldName(legacyLabel), out.Canonical)
}

func TestHandleMapFieldName_UnknownLabelPassesThroughUnchanged(t *testing.T) {
	s := testServer(t)

	req := makeRequest("map_field_name", map[string]any{"label": "NotARealLegacyLabel"})
	result, err := s.handleMapFieldName(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out mapFieldNameResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "NotARealLegacyLabel", out.Canonical)
}

func TestHandleListTables_FiltersByFamily(t *testing.T) {
	s := testServer(t)

	req := makeRequest("list_tables", map[string]any{"family": "NL"})
	result, err := s.handleListTables(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out listTablesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Contains(t, out.Tables, "NL_RA")

	for _, name := range out.Tables {
		assert.Contains(t, name, "NL_")
	}
}

func TestHandleListTables_EmptyFamilyListsEverything(t *testing.T) {
	s := testServer(t)
	cat, err := catalog.Load()
	require.NoError(t, err)

	req := makeRequest("list_tables", map[string]any{})
	result, err := s.handleListTables(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out listTablesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Len(t, out.Tables, len(cat.Tables("")))
}
