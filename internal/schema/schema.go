package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/askduck/askduck/internal/errors"
)

// Column is the declared definition of a single table column
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Nullable    bool   `json:"nullable"`
	PrimaryKey  bool   `json:"primary_key,omitempty"`
	ForeignKey  string `json:"foreign_key,omitempty"` // "table.column"
}

// Table is the declared definition of a single table
type Table struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}

// Relationship is a resolved foreign-key edge between two tables
type Relationship struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// DatabaseSchema is the full declared schema. It is constructed once by
// Load or Infer and never mutated afterwards, so it is safe to share
// across concurrent pipeline runs.
type DatabaseSchema struct {
	Name        string
	Description string

	tables  []Table          // declaration order, for deterministic prompts
	byName  map[string]Table // lowercased name -> table
	columns map[string]map[string]Column
}

// Document is the external schema definition format
type Document struct {
	DatabaseName string  `json:"database_name"`
	Description  string  `json:"description,omitempty"`
	Tables       []Table `json:"tables"`
}

// Parse decodes a JSON schema document and loads it
func Parse(data []byte) (*DatabaseSchema, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchema, "failed to parse schema document")
	}

	return Load(doc)
}

// Load builds an immutable DatabaseSchema from a definition document,
// rejecting duplicate table names, duplicate column names within a table,
// tables without columns, and foreign keys that do not resolve
func Load(doc Document) (*DatabaseSchema, error) {
	if len(doc.Tables) == 0 {
		return nil, errors.NewSchemaError("schema must declare at least one table")
	}

	name := doc.DatabaseName
	if name == "" {
		name = "database"
	}

	s := &DatabaseSchema{
		Name:        name,
		Description: doc.Description,
		byName:      make(map[string]Table, len(doc.Tables)),
		columns:     make(map[string]map[string]Column, len(doc.Tables)),
	}

	for _, table := range doc.Tables {
		if table.Name == "" {
			return nil, errors.NewSchemaError("table name must not be empty")
		}

		key := strings.ToLower(table.Name)
		if _, exists := s.byName[key]; exists {
			return nil, errors.NewSchemaError(fmt.Sprintf("duplicate table name: %s", table.Name))
		}

		if len(table.Columns) == 0 {
			return nil, errors.NewSchemaError(fmt.Sprintf("table %s declares no columns", table.Name))
		}

		cols := make(map[string]Column, len(table.Columns))

		for _, col := range table.Columns {
			if col.Name == "" {
				return nil, errors.NewSchemaError(fmt.Sprintf("table %s has a column with no name", table.Name))
			}

			colKey := strings.ToLower(col.Name)
			if _, exists := cols[colKey]; exists {
				return nil, errors.NewSchemaError(
					fmt.Sprintf("duplicate column %s in table %s", col.Name, table.Name))
			}

			cols[colKey] = col
		}

		s.tables = append(s.tables, table)
		s.byName[key] = table
		s.columns[key] = cols
	}

	// Foreign keys can point forward, so resolve after all tables are known.
	for _, table := range doc.Tables {
		for _, col := range table.Columns {
			if col.ForeignKey == "" {
				continue
			}

			refTable, refColumn, ok := strings.Cut(col.ForeignKey, ".")
			if !ok || refTable == "" || refColumn == "" {
				return nil, errors.NewSchemaError(fmt.Sprintf(
					"invalid foreign key %q on %s.%s: expected \"table.column\"",
					col.ForeignKey, table.Name, col.Name))
			}

			if !s.hasColumn(refTable, refColumn) {
				return nil, errors.NewSchemaError(fmt.Sprintf(
					"foreign key %s.%s references unknown %s.%s",
					table.Name, col.Name, refTable, refColumn))
			}
		}
	}

	return s, nil
}

// ColumnDescription is a column as reported by the data engine
type ColumnDescription struct {
	Name     string
	Type     string
	Nullable bool
}

// Introspector describes tables already registered in the data engine
type Introspector interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]ColumnDescription, error)
}

// Infer builds a schema from the tables currently registered in the data
// engine. Used when no schema document was supplied.
func Infer(ctx context.Context, name string, engine Introspector) (*DatabaseSchema, error) {
	tableNames, err := engine.ListTables(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeSchema, "failed to list tables for schema inference")
	}

	if len(tableNames) == 0 {
		return nil, errors.NewSchemaError("no tables registered in the data engine")
	}

	sort.Strings(tableNames)

	doc := Document{DatabaseName: name, Description: "Schema inferred from loaded data"}

	for _, tableName := range tableNames {
		described, err := engine.DescribeTable(ctx, tableName)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeSchema,
				"failed to describe table %s", tableName)
		}

		table := Table{Name: tableName}
		for _, col := range described {
			table.Columns = append(table.Columns, Column{
				Name:     col.Name,
				Type:     col.Type,
				Nullable: col.Nullable,
			})
		}

		doc.Tables = append(doc.Tables, table)
	}

	return Load(doc)
}

// HasTable reports whether a table is declared (case-insensitive)
func (s *DatabaseSchema) HasTable(name string) bool {
	_, ok := s.byName[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether a column is declared on a table (case-insensitive)
func (s *DatabaseSchema) HasColumn(table, column string) bool {
	return s.hasColumn(table, column)
}

func (s *DatabaseSchema) hasColumn(table, column string) bool {
	cols, ok := s.columns[strings.ToLower(table)]
	if !ok {
		return false
	}

	_, ok = cols[strings.ToLower(column)]

	return ok
}

// Table returns the declared table definition, if present
func (s *DatabaseSchema) Table(name string) (Table, bool) {
	t, ok := s.byName[strings.ToLower(name)]
	return t, ok
}

// Tables returns table definitions in declaration order
func (s *DatabaseSchema) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)

	return out
}

// TableNames returns declared table names in declaration order
func (s *DatabaseSchema) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for _, t := range s.tables {
		names = append(names, t.Name)
	}

	return names
}

// Relationships returns all declared foreign-key edges
func (s *DatabaseSchema) Relationships() []Relationship {
	var rels []Relationship

	for _, table := range s.tables {
		for _, col := range table.Columns {
			if col.ForeignKey == "" {
				continue
			}

			refTable, refColumn, _ := strings.Cut(col.ForeignKey, ".")
			rels = append(rels, Relationship{
				FromTable:  table.Name,
				FromColumn: col.Name,
				ToTable:    refTable,
				ToColumn:   refColumn,
			})
		}
	}

	return rels
}

// Describe renders the schema as the text block the language model sees.
// This is the same ground truth the validator checks against: every table,
// every column with type and description, and all foreign-key relationships.
func (s *DatabaseSchema) Describe() string {
	var sb strings.Builder

	sb.WriteString("# Database Schema\n")

	if s.Description != "" {
		sb.WriteString("\n" + s.Description + "\n")
	}

	fmt.Fprintf(&sb, "\nThe database contains %d tables:\n", len(s.tables))

	for _, table := range s.tables {
		fmt.Fprintf(&sb, "\n## Table: %s\n", table.Name)

		if table.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", table.Description)
		}

		sb.WriteString("\nColumns:\n")

		for _, col := range table.Columns {
			fmt.Fprintf(&sb, "- %s (%s)", col.Name, col.Type)

			var attrs []string
			if col.PrimaryKey {
				attrs = append(attrs, "PRIMARY KEY")
			}

			if col.ForeignKey != "" {
				attrs = append(attrs, "FOREIGN KEY -> "+col.ForeignKey)
			}

			if !col.Nullable {
				attrs = append(attrs, "NOT NULL")
			}

			if len(attrs) > 0 {
				fmt.Fprintf(&sb, " [%s]", strings.Join(attrs, ", "))
			}

			if col.Description != "" {
				sb.WriteString(" - " + col.Description)
			}

			sb.WriteString("\n")
		}
	}

	if rels := s.Relationships(); len(rels) > 0 {
		sb.WriteString("\n## Relationships\n")

		for _, rel := range rels {
			fmt.Fprintf(&sb, "- %s.%s -> %s.%s\n",
				rel.FromTable, rel.FromColumn, rel.ToTable, rel.ToColumn)
		}
	}

	return sb.String()
}

// Summary renders one line per table, used for suggestion prompts
func (s *DatabaseSchema) Summary() string {
	var lines []string

	for _, table := range s.tables {
		names := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			names = append(names, col.Name)
		}

		line := fmt.Sprintf("%s (%s)", table.Name, strings.Join(names, ", "))
		if table.Description != "" {
			line += " - " + table.Description
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
