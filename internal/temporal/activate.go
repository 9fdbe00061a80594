// Package temporal turns ordinary tables into system-versioned (temporal)
// tables backed by a history table.
package temporal

import (
	"context"
	"fmt"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/sqltype"
)

// Period column names and fixed declarations used on both the base table and
// its history table.
const (
	ValidFromColumn = "ValidFrom"
	ValidToColumn   = "ValidTo"

	// HistorySuffix is appended to the table name when no explicit history
	// table name is given.
	HistorySuffix = "History"

	validFromDefault = "SYSUTCDATETIME()"
	validToDefault   = "'9999-12-31 23:59:59'"

	validFromDescription = "Start of the period for which this row version is valid (UTC)."
	validToDescription   = "End of the period for which this row version is valid (UTC)."
)

// periodColumnType is the fixed datetime2(7) type of both period columns.
var periodColumnType = sqltype.DataType{Base: sqltype.DateTime2, Scale: 7}

// Options control where the history table is created. Zero values fall back
// to the default schema and "<TableName>History".
type Options struct {
	HistorySchema string
	HistoryTable  string
}

// Activate enables system versioning on the table: it adds the two period
// columns, builds and creates the history table with a supporting index,
// links the period, hides the period columns, records the history linkage and
// persists the whole change set.
//
// The workflow is not atomic and there is no rollback: a failure part way
// through leaves the in-memory table partially mutated and possibly a created
// history table behind. Callers must treat any error as "abort entirely" and
// discard the table object. Running it twice fails the duplicate-object check
// before anything is mutated.
func Activate(ctx context.Context, store schema.Store, table *schema.Table, opts Options) error {
	if table == nil {
		return fmt.Errorf("%w: table is nil", schema.ErrInvalidArgument)
	}

	historySchema := opts.HistorySchema
	if historySchema == "" {
		historySchema = schema.DefaultSchema
	}
	historyTable := opts.HistoryTable
	if historyTable == "" {
		historyTable = table.Name + HistorySuffix
	}

	exists, err := store.TableExists(ctx, historySchema, historyTable)
	if err != nil {
		return fmt.Errorf("failed to check history table existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: table %s", schema.ErrDuplicateObject,
			schema.QualifiedName(historySchema, historyTable))
	}

	if err := table.Refresh(ctx); err != nil {
		return err
	}

	if err := table.AddColumn(schema.Column{
		Name:        ValidFromColumn,
		Type:        periodColumnType,
		Default:     validFromDefault,
		Description: validFromDescription,
	}); err != nil {
		return err
	}
	if err := table.AddColumn(schema.Column{
		Name:        ValidToColumn,
		Type:        periodColumnType,
		Default:     validToDefault,
		Description: validToDescription,
	}); err != nil {
		return err
	}

	if err := buildHistoryTable(ctx, store, table, historySchema, historyTable); err != nil {
		return err
	}

	if err := table.SetPeriod(ValidFromColumn, ValidToColumn); err != nil {
		return err
	}
	if err := table.HideColumn(ValidFromColumn); err != nil {
		return err
	}
	if err := table.HideColumn(ValidToColumn); err != nil {
		return err
	}
	if err := table.EnableSystemVersioning(historySchema, historyTable); err != nil {
		return err
	}

	if err := table.Alter(ctx); err != nil {
		return err
	}
	return table.Refresh(ctx)
}

// buildHistoryTable clones the table's columns into a new history table,
// appends its own period columns (no defaults, history rows are never
// current) and creates it with a supporting index over the period.
func buildHistoryTable(ctx context.Context, store schema.Store, table *schema.Table, historySchema, historyTable string) error {
	history, err := schema.NewTable(store, historySchema, historyTable)
	if err != nil {
		return err
	}
	history.Description = fmt.Sprintf("System-versioning history for %s.", table.QualifiedName())

	for _, col := range table.Columns {
		// The period columns were already staged on the base table; they
		// are appended below without defaults. Identity does not carry
		// over, history rows are copies.
		if col.Name == ValidFromColumn || col.Name == ValidToColumn {
			continue
		}
		if err := history.AddColumn(schema.Column{
			Name:        col.Name,
			Type:        col.Type,
			Nullable:    col.Nullable,
			Description: col.Description,
		}); err != nil {
			return err
		}
	}

	for _, name := range []string{ValidFromColumn, ValidToColumn} {
		if err := history.AddColumn(schema.Column{
			Name: name,
			Type: periodColumnType,
		}); err != nil {
			return err
		}
	}

	if err := history.AddIndex(schema.Index{
		Name:    fmt.Sprintf("IX_%s_Period", historyTable),
		Columns: []string{ValidFromColumn, ValidToColumn},
	}); err != nil {
		return err
	}

	return history.Create(ctx)
}
