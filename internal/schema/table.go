package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/koba/mssql-schema/internal/sqltype"
)

// Table represents a table with its schema and staged changes. Mutating
// methods only touch the in-memory model and queue DDL; Create and Alter
// persist to the backing store, Refresh reloads from it.
type Table struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	Description string       `json:"description,omitempty"`

	HistorySchema   string  `json:"history_schema,omitempty"`
	HistoryTable    string  `json:"history_table,omitempty"`
	SystemVersioned bool    `json:"system_versioned"`
	Period          *Period `json:"period,omitempty"`

	store   Store
	pending []string
}

// NewTable creates an in-memory table bound to a backing store. The schema
// defaults to DefaultSchema when empty.
func NewTable(store Store, schemaName, name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is empty", ErrInvalidArgument)
	}
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return &Table{
		Schema:      schemaName,
		Name:        name,
		Columns:     []Column{},
		Indexes:     []Index{},
		ForeignKeys: []ForeignKey{},
		store:       store,
	}, nil
}

// QualifiedName returns the bracket-quoted schema.table pair.
func (t *Table) QualifiedName() string {
	return QualifiedName(t.Schema, t.Name)
}

// Column returns the named column, matched case-insensitively.
func (t *Table) Column(name string) (*Column, error) {
	if col, ok := FindColumn(t.Columns, name); ok {
		return col, nil
	}
	return nil, fmt.Errorf("%w: column %q on table %s", ErrNotFound, name, t.QualifiedName())
}

// HasColumn reports whether the named column exists, case-insensitively.
func (t *Table) HasColumn(name string) bool {
	_, ok := FindColumn(t.Columns, name)
	return ok
}

// Pending returns the DDL statements staged since the last Create or Alter.
func (t *Table) Pending() []string {
	return append([]string(nil), t.pending...)
}

// AddColumn stages an ALTER TABLE ... ADD for the column and appends it to
// the in-memory model. Adding a column that already exists is a conflict.
func (t *Table) AddColumn(col Column) error {
	if col.Name == "" {
		return fmt.Errorf("%w: column name is empty", ErrInvalidArgument)
	}
	if t.HasColumn(col.Name) {
		return fmt.Errorf("%w: column %q already exists on table %s", ErrConflict, col.Name, t.QualifiedName())
	}

	def, err := columnDefinition(col)
	if err != nil {
		return err
	}

	t.pending = append(t.pending, fmt.Sprintf("ALTER TABLE %s ADD %s", t.QualifiedName(), def))
	if col.Description != "" {
		t.pending = append(t.pending, t.columnDescriptionDDL(col.Name, col.Description))
	}

	col.Position = len(t.Columns) + 1
	t.Columns = append(t.Columns, col)
	return nil
}

// AddIndex stages a CREATE INDEX over the given columns.
func (t *Table) AddIndex(idx Index) error {
	if idx.Name == "" || len(idx.Columns) == 0 {
		return fmt.Errorf("%w: index needs a name and at least one column", ErrInvalidArgument)
	}
	for _, existing := range t.Indexes {
		if strings.EqualFold(existing.Name, idx.Name) {
			return fmt.Errorf("%w: index %q already exists on table %s", ErrConflict, idx.Name, t.QualifiedName())
		}
	}
	for _, colName := range idx.Columns {
		if !t.HasColumn(colName) {
			return fmt.Errorf("%w: column %q on table %s", ErrNotFound, colName, t.QualifiedName())
		}
	}

	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	columns := strings.Join(quoteIdentifiers(idx.Columns), ", ")
	t.pending = append(t.pending, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, QuoteIdentifier(idx.Name), t.QualifiedName(), columns))

	t.Indexes = append(t.Indexes, idx)
	return nil
}

// SetPeriod stages the system-time period over two existing columns.
func (t *Table) SetPeriod(validFrom, validTo string) error {
	if validFrom == "" || validTo == "" {
		return fmt.Errorf("%w: period column names are empty", ErrInvalidArgument)
	}
	for _, name := range []string{validFrom, validTo} {
		if !t.HasColumn(name) {
			return fmt.Errorf("%w: column %q on table %s", ErrNotFound, name, t.QualifiedName())
		}
	}

	t.pending = append(t.pending, fmt.Sprintf("ALTER TABLE %s ADD PERIOD FOR SYSTEM_TIME (%s, %s)",
		t.QualifiedName(), QuoteIdentifier(validFrom), QuoteIdentifier(validTo)))
	t.Period = &Period{ValidFrom: validFrom, ValidTo: validTo}
	return nil
}

// HideColumn stages hiding a column from default projections.
func (t *Table) HideColumn(name string) error {
	col, err := t.Column(name)
	if err != nil {
		return err
	}
	t.pending = append(t.pending, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s ADD HIDDEN",
		t.QualifiedName(), QuoteIdentifier(col.Name)))
	col.Hidden = true
	return nil
}

// EnableSystemVersioning stages turning on system versioning against the
// given history table and records the linkage on the model.
func (t *Table) EnableSystemVersioning(historySchema, historyTable string) error {
	if historySchema == "" || historyTable == "" {
		return fmt.Errorf("%w: history schema or table name is empty", ErrInvalidArgument)
	}
	t.pending = append(t.pending, fmt.Sprintf(
		"ALTER TABLE %s SET (SYSTEM_VERSIONING = ON (HISTORY_TABLE = %s))",
		t.QualifiedName(), QualifiedName(historySchema, historyTable)))
	t.HistorySchema = historySchema
	t.HistoryTable = historyTable
	t.SystemVersioned = true
	return nil
}

// CreateDDL builds the CREATE TABLE statement from the in-memory columns.
func (t *Table) CreateDDL() (string, error) {
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%w: table %s has no columns", ErrInvalidArgument, t.QualifiedName())
	}

	defs := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def, err := columnDefinition(col)
		if err != nil {
			return "", err
		}
		defs = append(defs, def)
	}

	for _, idx := range t.Indexes {
		if idx.Primary {
			pkCols := strings.Join(quoteIdentifiers(idx.Columns), ", ")
			defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", pkCols))
			break
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", t.QualifiedName(), strings.Join(defs, ",\n  ")), nil
}

// Create persists the table to the backing store. Creating over an existing
// table is a duplicate-object error. Any DDL staged before Create (column
// descriptions, indexes) is flushed after the CREATE TABLE.
func (t *Table) Create(ctx context.Context) error {
	exists, err := t.store.TableExists(ctx, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: table %s", ErrDuplicateObject, t.QualifiedName())
	}

	ddl, err := t.CreateDDL()
	if err != nil {
		return err
	}

	// Column-level statements staged before the table existed only make
	// sense as extended properties and indexes; the column definitions
	// themselves are folded into the CREATE TABLE.
	stmts := append([]string{ddl}, descriptionAndIndexStatements(t.pending)...)
	if t.Description != "" {
		stmts = append(stmts, t.tableDescriptionDDL())
	}

	for _, stmt := range stmts {
		if err := t.store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.QualifiedName(), err)
		}
	}
	t.pending = nil
	return nil
}

// Alter flushes every staged statement to the backing store in order.
func (t *Table) Alter(ctx context.Context) error {
	for _, stmt := range t.pending {
		if err := t.store.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to alter table %s: %w", t.QualifiedName(), err)
		}
	}
	t.pending = nil
	return nil
}

// Refresh reloads the column metadata from the backing store, discarding any
// staged statements.
func (t *Table) Refresh(ctx context.Context) error {
	columns, err := t.store.TableColumns(ctx, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to refresh table %s: %w", t.QualifiedName(), err)
	}
	t.Columns = columns
	t.pending = nil
	return nil
}

func (t *Table) columnDescriptionDDL(columnName, description string) string {
	return fmt.Sprintf(
		"EXEC sys.sp_addextendedproperty @name=N'MS_Description', @value=N'%s', "+
			"@level0type=N'SCHEMA', @level0name=N'%s', "+
			"@level1type=N'TABLE', @level1name=N'%s', "+
			"@level2type=N'COLUMN', @level2name=N'%s'",
		escapeString(description), escapeString(t.Schema), escapeString(t.Name), escapeString(columnName))
}

func (t *Table) tableDescriptionDDL() string {
	return fmt.Sprintf(
		"EXEC sys.sp_addextendedproperty @name=N'MS_Description', @value=N'%s', "+
			"@level0type=N'SCHEMA', @level0name=N'%s', "+
			"@level1type=N'TABLE', @level1name=N'%s'",
		escapeString(t.Description), escapeString(t.Schema), escapeString(t.Name))
}

// columnDefinition renders a single column DDL fragment.
func columnDefinition(col Column) (string, error) {
	typeDDL, err := sqltype.Declare(col.Type)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", col.Name, err)
	}

	def := QuoteIdentifier(col.Name) + " " + typeDDL
	if col.Identity {
		def += " IDENTITY(1, 1)"
	}
	if col.Nullable {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}
	if col.Default != "" {
		def += fmt.Sprintf(" DEFAULT %s", col.Default)
	}
	return def, nil
}

// ColumnsWithTypes renders "name type" pairs for a column set, one line per
// column, for display purposes.
func ColumnsWithTypes(columns []Column) []string {
	return lo.Map(columns, func(col Column, _ int) string {
		decl, err := sqltype.Declare(col.Type)
		if err != nil {
			decl = col.Type.Base.String()
		}
		return fmt.Sprintf("%s %s", col.Name, decl)
	})
}

func quoteIdentifiers(names []string) []string {
	return lo.Map(names, func(name string, _ int) string {
		return QuoteIdentifier(name)
	})
}

// descriptionAndIndexStatements filters staged DDL down to the statements
// that still apply after the columns were folded into a CREATE TABLE.
func descriptionAndIndexStatements(pending []string) []string {
	return lo.Filter(pending, func(stmt string, _ int) bool {
		return strings.HasPrefix(stmt, "EXEC sys.sp_addextendedproperty") ||
			strings.HasPrefix(stmt, "CREATE INDEX") ||
			strings.HasPrefix(stmt, "CREATE UNIQUE INDEX")
	})
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
