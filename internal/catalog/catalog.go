// Package catalog is the Schema Catalog & Field Map: static metadata for
// every target table, plus the lexical map from legacy vendor field labels
// to canonical column names.
//
// The table data is authored once as embedded YAML
// (internal/catalog/data/tables.yaml, transcribed from the vendor's
// published field dictionary) and loaded into an immutable, read-only-after-init
// registry. No runtime mutation, per the source pattern this replaces.
package catalog

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed data/tables.yaml
var embeddedTables embed.FS

// ColumnMeta describes one column of a table.
type ColumnMeta struct {
	Name        string `yaml:"name"`
	LegacyLabel string `yaml:"legacy_label"`
	Type        string `yaml:"type"`
	Nullable    bool   `yaml:"nullable"`
	Example     string `yaml:"example"`
}

// TableMeta describes one target table: its family, the record spec that
// feeds it, its column list, primary key, and secondary indexes.
type TableMeta struct {
	Table      string       `yaml:"table"`
	Family     string       `yaml:"family"`
	RecordType string       `yaml:"record_type"`
	Purpose    string       `yaml:"purpose"`
	PrimaryKey []string     `yaml:"primary_key"`
	Indexes    []string     `yaml:"indexes"`
	Columns    []ColumnMeta `yaml:"columns"`
}

// ColumnSet returns the table's declared column names, used to check a
// parser's emitted row against SchemaDrift.
func (t TableMeta) ColumnSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		set[c.Name] = struct{}{}
	}

	return set
}

// Catalog is the read-only, init-time-built registry of all tables and the
// legacy-label-to-canonical-column field map.
type Catalog struct {
	tables   map[string]TableMeta
	fieldMap map[string]string
}

var errDuplicateTable = fmt.Errorf("catalog: duplicate table definition")

// Load parses the embedded table catalog into memory. Called once at
// process startup; the returned Catalog is safe for concurrent read-only use.
func Load() (*Catalog, error) {
	raw, err := embeddedTables.ReadFile("data/tables.yaml")
	if err != nil {
		return nil, fmt.Errorf("catalog: reading embedded table data: %w", err)
	}

	var defs []TableMeta
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("catalog: parsing embedded table data: %w", err)
	}

	c := &Catalog{
		tables:   make(map[string]TableMeta, len(defs)),
		fieldMap: make(map[string]string),
	}

	for _, def := range defs {
		if _, exists := c.tables[def.Table]; exists {
			return nil, fmt.Errorf("%w: %s", errDuplicateTable, def.Table)
		}

		c.tables[def.Table] = def

		for _, col := range def.Columns {
			if col.LegacyLabel != "" {
				c.fieldMap[col.LegacyLabel] = col.Name
			}
		}
	}

	return c, nil
}

// MustLoad is Load but panics on error; used by package-level init paths
// that have no sensible way to propagate a startup failure (e.g. CLI entrypoints
// whose flag parsing happens before any logger exists).
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}

	return c
}

// Describe returns the metadata for a table, consulted by external callers
// such as the MCP schema descriptor.
func (c *Catalog) Describe(table string) (TableMeta, bool) {
	meta, ok := c.tables[table]

	return meta, ok
}

// MapFieldName maps a legacy vendor field label to its canonical column
// name. Unknown labels pass through unchanged; the caller decides whether
// that is acceptable.
func (c *Catalog) MapFieldName(label string) string {
	if canonical, ok := c.fieldMap[label]; ok {
		return canonical
	}

	return label
}

// TableForRecordSpec returns the target table name for a two-character
// record specification within a family (e.g. family="NL", spec="RA" -> "NL_RA").
func (c *Catalog) TableForRecordSpec(family, spec string) (string, bool) {
	name := family + "_" + spec
	if _, ok := c.tables[name]; ok {
		return name, true
	}

	return "", false
}

// Tables returns every table name, optionally filtered by family
// ("NL", "RT", "TS", or "" for all).
func (c *Catalog) Tables(family string) []string {
	names := make([]string, 0, len(c.tables))

	for name, meta := range c.tables {
		if family == "" || meta.Family == family {
			names = append(names, name)
		}
	}

	return names
}
