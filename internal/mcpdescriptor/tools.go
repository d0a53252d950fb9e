package mcpdescriptor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool Definitions ---

func describeTableTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"describe_table",
		"Return the catalog metadata for one target table: its family, record spec, primary key, indexes, and column list.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"table": {
					"type": "string",
					"description": "Target table name, e.g. NL_RA or RT_O1"
				}
			},
			"required": ["table"]
		}`),
	)
}

func mapFieldNameTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"map_field_name",
		"Map a legacy vendor field label to its canonical column name. Unknown labels are returned unchanged.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"label": {
					"type": "string",
					"description": "Legacy vendor field label"
				}
			},
			"required": ["label"]
		}`),
	)
}

func listTablesTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"list_tables",
		"List target table names, optionally filtered to one family (NL, RT, or TS).",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"family": {
					"type": "string",
					"description": "Table family to filter by (NL, RT, TS); empty lists every table"
				}
			}
		}`),
	)
}

// --- Handlers ---

type describeTableArgs struct {
	Table string `json:"table"`
}

func (s *Server) handleDescribeTable(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args describeTableArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if args.Table == "" {
		return mcp.NewToolResultError("table is required"), nil
	}

	meta, ok := s.catalog.Describe(args.Table)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown table: %s", args.Table)), nil
	}

	return resultJSON(meta)
}

type mapFieldNameArgs struct {
	Label string `json:"label"`
}

type mapFieldNameResult struct {
	Canonical string `json:"canonical"`
}

func (s *Server) handleMapFieldName(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args mapFieldNameArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if args.Label == "" {
		return mcp.NewToolResultError("label is required"), nil
	}

	return resultJSON(mapFieldNameResult{Canonical: s.catalog.MapFieldName(args.Label)})
}

type listTablesArgs struct {
	Family string `json:"family"`
}

type listTablesResult struct {
	Tables []string `json:"tables"`
}

func (s *Server) handleListTables(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listTablesArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	return resultJSON(listTablesResult{Tables: s.catalog.Tables(args.Family)})
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}
