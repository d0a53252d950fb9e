// Package mcpdescriptor exposes the Schema Catalog over the Model Context
// Protocol so an external tool-using agent can look up table metadata and
// legacy-field-name mappings without a database connection: describe_table,
// map_field_name, and list_tables, each a thin read-only wrapper around
// internal/catalog.
package mcpdescriptor

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jravan/ingest/internal/catalog"
)

// Version is reported to MCP clients during the initialize handshake.
const Version = "0.1.0"

// Server holds the MCP server state: the one read-only Catalog it serves.
type Server struct {
	catalog *catalog.Catalog
}

// NewServer builds an MCP descriptor server over cat.
func NewServer(cat *catalog.Catalog) *Server {
	return &Server{catalog: cat}
}

// Run starts the MCP stdio server, blocking until stdin closes.
func Run(cat *catalog.Catalog) error {
	s := NewServer(cat)

	mcpServer := server.NewMCPServer(
		"jravan-ingest-schema",
		Version,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTools(
		server.ServerTool{Tool: describeTableTool(), Handler: s.handleDescribeTable},
		server.ServerTool{Tool: mapFieldNameTool(), Handler: s.handleMapFieldName},
		server.ServerTool{Tool: listTablesTool(), Handler: s.handleListTables},
	)

	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(log.New(os.Stderr, "[mcp] ", log.LstdFlags))

	return stdio.Listen(context.Background(), os.Stdin, os.Stdout)
}
