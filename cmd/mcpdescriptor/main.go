// Package main provides the jravan-ingest-schema MCP server: a read-only
// stdio tool surface over the Schema Catalog, for agents that need table
// metadata or legacy-field-name mappings without a database connection.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/jravan/ingest/internal/catalog"
	"github.com/jravan/ingest/internal/mcpdescriptor"
)

const name = "jravan-ingest-schema"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, mcpdescriptor.Version)
		os.Exit(0)
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("loading schema catalog: %v", err)
	}

	if err := mcpdescriptor.Run(cat); err != nil {
		log.Fatalf("mcp server stopped: %v", err)
	}
}
