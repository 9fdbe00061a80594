package schema

import (
	"context"
	"strings"

	"github.com/koba/mssql-schema/internal/sqltype"
)

// DefaultSchema is the schema objects belong to when no schema is given.
const DefaultSchema = "dbo"

// Column represents a database column.
type Column struct {
	Name        string           `json:"name"`
	Type        sqltype.DataType `json:"type"`
	Nullable    bool             `json:"nullable"`
	Default     string           `json:"default,omitempty"`
	Description string           `json:"description,omitempty"`
	Identity    bool             `json:"identity"`
	Hidden      bool             `json:"hidden"`
	Position    int              `json:"position"`
}

// Index represents a database index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ForeignKey represents a foreign key constraint.
type ForeignKey struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete"`
	OnUpdate         string `json:"on_update"`
}

// Period is the pair of columns delimiting a table's system-time period.
type Period struct {
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

// Parameter represents a stored procedure parameter.
type Parameter struct {
	Name     string           `json:"name"`
	Type     sqltype.DataType `json:"type"`
	TypeName string           `json:"type_name"`
	Output   bool             `json:"output"`
	Position int              `json:"position"`
}

// Procedure represents a stored procedure and its declared parameters.
type Procedure struct {
	Schema     string      `json:"schema"`
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// Store is the backing-store contract used to persist and refresh schema
// objects. The object model stages every mutation in memory; only the methods
// below talk to the database.
type Store interface {
	Exec(ctx context.Context, stmt string) error
	TableExists(ctx context.Context, schemaName, tableName string) (bool, error)
	TableColumns(ctx context.Context, schemaName, tableName string) ([]Column, error)
}

// QuoteIdentifier brackets an identifier, escaping any closing bracket.
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QualifiedName returns the bracket-quoted schema.object pair.
func QualifiedName(schemaName, objectName string) string {
	return QuoteIdentifier(schemaName) + "." + QuoteIdentifier(objectName)
}

// FindColumn locates a column by name, case-insensitively.
func FindColumn(columns []Column, name string) (*Column, bool) {
	for i := range columns {
		if strings.EqualFold(columns[i].Name, name) {
			return &columns[i], true
		}
	}
	return nil, false
}

// FindParameter locates a procedure parameter by name, case-insensitively,
// tolerating a leading @ on either side.
func FindParameter(params []Parameter, name string) (*Parameter, bool) {
	name = strings.TrimPrefix(name, "@")
	for i := range params {
		if strings.EqualFold(strings.TrimPrefix(params[i].Name, "@"), name) {
			return &params[i], true
		}
	}
	return nil, false
}
