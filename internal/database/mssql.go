package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/sqltype"
)

// Exec runs a single DDL or DML statement.
func (c *Connection) Exec(ctx context.Context, stmt string) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// ListTables retrieves all user table names in the catalog as schema.table
// pairs.
func (c *Connection) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT s.name, t.name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		ORDER BY s.name, t.name
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schemaName, tableName string
		if err := rows.Scan(&schemaName, &tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, schemaName+"."+tableName)
	}
	return tables, rows.Err()
}

// TableExists reports whether a table occupies (schemaName, tableName).
func (c *Connection) TableExists(ctx context.Context, schemaName, tableName string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @schema AND t.name = @table
	`
	var count int
	err := c.db.QueryRowContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// TableColumns retrieves the column metadata for a table.
func (c *Connection) TableColumns(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			col.name,
			typ.name,
			CASE
				WHEN typ.name IN ('nchar', 'nvarchar') AND col.max_length > 0 THEN col.max_length / 2
				ELSE col.max_length
			END,
			col.precision,
			col.scale,
			col.is_nullable,
			col.is_identity,
			col.is_hidden,
			ISNULL(def.definition, ''),
			ISNULL(CAST(ep.value AS NVARCHAR(4000)), ''),
			col.column_id
		FROM sys.columns col
		JOIN sys.tables tbl ON tbl.object_id = col.object_id
		JOIN sys.schemas sch ON sch.schema_id = tbl.schema_id
		JOIN sys.types typ ON typ.user_type_id = col.user_type_id
		LEFT JOIN sys.default_constraints def ON def.object_id = col.default_object_id
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = col.object_id AND ep.minor_id = col.column_id
			AND ep.class = 1 AND ep.name = 'MS_Description'
		WHERE sch.name = @schema AND tbl.name = @table
		ORDER BY col.column_id
	`
	rows, err := c.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var typeName string
		var maxLength, precision, scale int
		if err := rows.Scan(&col.Name, &typeName, &maxLength, &precision, &scale,
			&col.Nullable, &col.Identity, &col.Hidden, &col.Default, &col.Description,
			&col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col.Type, err = sqltype.Parse(typeName, maxLength, precision, scale)
		if err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", schemaName, tableName, err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// TableIndexes retrieves the named indexes of a table.
func (c *Connection) TableIndexes(ctx context.Context, schemaName, tableName string) ([]schema.Index, error) {
	query := `
		SELECT idx.name, col.name, idx.is_unique, idx.is_primary_key
		FROM sys.indexes idx
		JOIN sys.index_columns ic ON ic.object_id = idx.object_id AND ic.index_id = idx.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		JOIN sys.tables tbl ON tbl.object_id = idx.object_id
		JOIN sys.schemas sch ON sch.schema_id = tbl.schema_id
		WHERE sch.name = @schema AND tbl.name = @table AND idx.name IS NOT NULL
		ORDER BY idx.name, ic.key_ordinal
	`
	rows, err := c.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	defer rows.Close()

	indexMap := make(map[string]*schema.Index)
	var order []string
	for rows.Next() {
		var indexName, columnName string
		var unique, primary bool
		if err := rows.Scan(&indexName, &columnName, &unique, &primary); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}

		if idx, exists := indexMap[indexName]; exists {
			idx.Columns = append(idx.Columns, columnName)
		} else {
			indexMap[indexName] = &schema.Index{
				Name:    indexName,
				Columns: []string{columnName},
				Unique:  unique,
				Primary: primary,
			}
			order = append(order, indexName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]schema.Index, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *indexMap[name])
	}
	return indexes, nil
}

// TableForeignKeys retrieves the foreign key constraints of a table.
func (c *Connection) TableForeignKeys(ctx context.Context, schemaName, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT
			fk.name,
			pc.name,
			rt.name,
			rc.name,
			fk.delete_referential_action_desc,
			fk.update_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		JOIN sys.tables pt ON pt.object_id = fk.parent_object_id
		JOIN sys.schemas sch ON sch.schema_id = pt.schema_id
		WHERE sch.name = @schema AND pt.name = @table
		ORDER BY fk.name
	`
	rows, err := c.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	defer rows.Close()

	var foreignKeys []schema.ForeignKey
	for rows.Next() {
		var fk schema.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn,
			&fk.OnDelete, &fk.OnUpdate); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fk.OnDelete = strings.ReplaceAll(fk.OnDelete, "_", " ")
		fk.OnUpdate = strings.ReplaceAll(fk.OnUpdate, "_", " ")
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

// FindTable locates a table by name, case-insensitively, and loads its full
// schema. The name may be schema-qualified; unqualified names search the
// default schema.
func (c *Connection) FindTable(ctx context.Context, name string) (*schema.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is empty", schema.ErrInvalidArgument)
	}

	schemaName := schema.DefaultSchema
	tableName := name
	if i := strings.Index(name, "."); i >= 0 {
		schemaName, tableName = name[:i], name[i+1:]
	}

	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	qualified := schemaName + "." + tableName
	found := ""
	for _, candidate := range tables {
		if strings.EqualFold(candidate, qualified) {
			found = candidate
			break
		}
	}
	if found == "" {
		return nil, fmt.Errorf("%w: table %q in catalog %s", schema.ErrNotFound, name, c.config.Database)
	}
	parts := strings.SplitN(found, ".", 2)

	return c.GetTable(ctx, parts[0], parts[1])
}

// GetTable loads a table's columns, indexes, foreign keys and versioning
// state into a Table bound to this connection.
func (c *Connection) GetTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error) {
	table, err := schema.NewTable(c, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	if table.Columns, err = c.TableColumns(ctx, schemaName, tableName); err != nil {
		return nil, err
	}
	if table.Indexes, err = c.TableIndexes(ctx, schemaName, tableName); err != nil {
		return nil, err
	}
	if table.ForeignKeys, err = c.TableForeignKeys(ctx, schemaName, tableName); err != nil {
		return nil, err
	}
	if err := c.loadVersioning(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// loadVersioning fills in the system-versioning attributes for tables that
// already have a history table linked.
func (c *Connection) loadVersioning(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			tbl.temporal_type,
			ISNULL(OBJECT_SCHEMA_NAME(tbl.history_table_id), ''),
			ISNULL(OBJECT_NAME(tbl.history_table_id), '')
		FROM sys.tables tbl
		JOIN sys.schemas sch ON sch.schema_id = tbl.schema_id
		WHERE sch.name = @schema AND tbl.name = @table
	`
	var temporalType int
	var historySchema, historyTable string
	err := c.db.QueryRowContext(ctx, query,
		sql.Named("schema", table.Schema),
		sql.Named("table", table.Name),
	).Scan(&temporalType, &historySchema, &historyTable)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get versioning state: %w", err)
	}

	// temporal_type 2 is SYSTEM_VERSIONED_TEMPORAL_TABLE.
	if temporalType == 2 {
		table.SystemVersioned = true
		table.HistorySchema = historySchema
		table.HistoryTable = historyTable
	}
	return nil
}

// Result is a generic tabular result wrapper.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Query runs an arbitrary statement and collects the result set generically,
// decoding byte slices to strings the way the driver returns text columns.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get result columns: %w", err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}
