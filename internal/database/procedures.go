package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/sqltype"
)

// ListProcedures retrieves all stored procedure names as schema.name pairs.
func (c *Connection) ListProcedures(ctx context.Context) ([]string, error) {
	query := `
		SELECT s.name, p.name
		FROM sys.procedures p
		JOIN sys.schemas s ON s.schema_id = p.schema_id
		ORDER BY s.name, p.name
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procs []string
	for rows.Next() {
		var schemaName, procName string
		if err := rows.Scan(&schemaName, &procName); err != nil {
			return nil, fmt.Errorf("failed to scan procedure name: %w", err)
		}
		procs = append(procs, schemaName+"."+procName)
	}
	return procs, rows.Err()
}

// FindProcedure locates a stored procedure by name, case-insensitively, and
// loads its declared parameter list. Unqualified names search the default
// schema.
func (c *Connection) FindProcedure(ctx context.Context, name string) (*schema.Procedure, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: procedure name is empty", schema.ErrInvalidArgument)
	}

	schemaName := schema.DefaultSchema
	procName := name
	if i := strings.Index(name, "."); i >= 0 {
		schemaName, procName = name[:i], name[i+1:]
	}

	procs, err := c.ListProcedures(ctx)
	if err != nil {
		return nil, err
	}
	qualified := schemaName + "." + procName
	found := ""
	for _, candidate := range procs {
		if strings.EqualFold(candidate, qualified) {
			found = candidate
			break
		}
	}
	if found == "" {
		return nil, fmt.Errorf("%w: procedure %q in catalog %s", schema.ErrNotFound, name, c.config.Database)
	}
	parts := strings.SplitN(found, ".", 2)

	params, err := c.procedureParameters(ctx, parts[0], parts[1])
	if err != nil {
		return nil, err
	}
	return &schema.Procedure{Schema: parts[0], Name: parts[1], Parameters: params}, nil
}

func (c *Connection) procedureParameters(ctx context.Context, schemaName, procName string) ([]schema.Parameter, error) {
	query := `
		SELECT
			par.name,
			typ.name,
			CASE
				WHEN typ.name IN ('nchar', 'nvarchar') AND par.max_length > 0 THEN par.max_length / 2
				ELSE par.max_length
			END,
			par.precision,
			par.scale,
			par.is_output,
			typ.is_table_type,
			ISNULL(SCHEMA_NAME(typ.schema_id), ''),
			par.parameter_id
		FROM sys.parameters par
		JOIN sys.procedures prc ON prc.object_id = par.object_id
		JOIN sys.schemas sch ON sch.schema_id = prc.schema_id
		JOIN sys.types typ ON typ.user_type_id = par.user_type_id
		WHERE sch.name = @schema AND prc.name = @proc AND par.parameter_id > 0
		ORDER BY par.parameter_id
	`
	rows, err := c.db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("proc", procName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters: %w", err)
	}
	defer rows.Close()

	var params []schema.Parameter
	for rows.Next() {
		var param schema.Parameter
		var typeName, typeSchema string
		var maxLength, precision, scale int
		var isTableType bool
		if err := rows.Scan(&param.Name, &typeName, &maxLength, &precision, &scale,
			&param.Output, &isTableType, &typeSchema, &param.Position); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}

		switch {
		case isTableType:
			param.Type = sqltype.DataType{Base: sqltype.UserDefinedTableType}
			param.TypeName = typeSchema + "." + typeName
		default:
			param.TypeName = typeName
			dt, err := sqltype.Parse(typeName, maxLength, precision, scale)
			if err != nil && !errors.Is(err, sqltype.ErrUnsupportedType) {
				return nil, err
			}
			// Unrecognized parameter types stay None; the executor
			// substitutes a null marker for them.
			if err == nil {
				param.Type = dt
			}
		}
		params = append(params, param)
	}
	return params, rows.Err()
}
