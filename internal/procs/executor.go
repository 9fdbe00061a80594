// Package procs invokes stored procedures with synthesized placeholder
// arguments, for checking that a procedure is callable without real data.
package procs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/google/uuid"

	"github.com/koba/mssql-schema/internal/database"
	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/sqltype"
)

// PlaceholderValue synthesizes the fixed sentinel argument for a declared
// parameter: 1 for the integer and numeric families, false for bit, "A" for
// the string families, the current UTC timestamp for date/time, the all-zero
// UUID for uniqueidentifier, an empty table-valued payload for structured
// types and nil for anything unrecognized.
func PlaceholderValue(param schema.Parameter) any {
	driver, err := sqltype.ToDriverType(param.Type.Base)
	if err != nil {
		return nil
	}

	switch driver {
	case sqltype.DriverBigInt, sqltype.DriverInt, sqltype.DriverSmallInt, sqltype.DriverTinyInt:
		return int64(1)
	case sqltype.DriverBit:
		return false
	case sqltype.DriverDecimal, sqltype.DriverFloat, sqltype.DriverReal,
		sqltype.DriverMoney, sqltype.DriverSmallMoney:
		return float64(1)
	case sqltype.DriverChar, sqltype.DriverNChar, sqltype.DriverNVarChar,
		sqltype.DriverVarChar, sqltype.DriverText, sqltype.DriverNText, sqltype.DriverXml:
		return "A"
	case sqltype.DriverDate, sqltype.DriverDateTime, sqltype.DriverDateTime2,
		sqltype.DriverDateTimeOffset, sqltype.DriverSmallDateTime, sqltype.DriverTime:
		return time.Now().UTC()
	case sqltype.DriverUniqueIdentifier:
		return uuid.Nil
	case sqltype.DriverStructured:
		return mssql.TVP{TypeName: param.TypeName}
	default:
		return nil
	}
}

// Execute invokes the procedure with placeholder arguments for every declared
// parameter and returns the generic result set. Table-valued parameters are
// left out of the statement: an unsupplied TVP defaults to an empty table on
// the server, which is the empty payload the placeholder stands for.
func Execute(ctx context.Context, conn *database.Connection, proc *schema.Procedure) (*database.Result, error) {
	if proc == nil {
		return nil, fmt.Errorf("%w: procedure is nil", schema.ErrInvalidArgument)
	}

	args := make([]any, 0, len(proc.Parameters))
	assignments := make([]string, 0, len(proc.Parameters))
	for _, param := range proc.Parameters {
		if driver, err := sqltype.ToDriverType(param.Type.Base); err == nil && driver == sqltype.DriverStructured {
			continue
		}
		name := strings.TrimPrefix(param.Name, "@")
		args = append(args, sql.Named(name, PlaceholderValue(param)))
		assignments = append(assignments, fmt.Sprintf("@%s = @%s", name, name))
	}

	stmt := "EXECUTE " + schema.QualifiedName(proc.Schema, proc.Name)
	if len(assignments) > 0 {
		stmt += " " + strings.Join(assignments, ", ")
	}

	result, err := conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute procedure %s: %w",
			schema.QualifiedName(proc.Schema, proc.Name), err)
	}
	return result, nil
}
