package diff

import (
	"fmt"
	"sort"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/snapshot"
)

// Result holds the complete comparison result, keyed by qualified table name.
type Result struct {
	SchemaDiffs map[string]*SchemaDiff
}

// Compare compares two schema snapshots and returns the differences.
func Compare(snap1, snap2 *snapshot.Snapshot) *Result {
	result := &Result{
		SchemaDiffs: make(map[string]*SchemaDiff),
	}

	// Find all unique table names
	tableNames := make(map[string]bool)
	for name := range snap1.Tables {
		tableNames[name] = true
	}
	for name := range snap2.Tables {
		tableNames[name] = true
	}

	for tableName := range tableNames {
		table1, exists1 := snap1.Tables[tableName]
		table2, exists2 := snap2.Tables[tableName]

		if !exists1 {
			result.SchemaDiffs[tableName] = &SchemaDiff{
				TableName: tableName,
				Action:    ActionAdd,
				NewTable:  table2,
			}
			continue
		}

		if !exists2 {
			result.SchemaDiffs[tableName] = &SchemaDiff{
				TableName: tableName,
				Action:    ActionDrop,
				OldTable:  table1,
			}
			continue
		}

		if schemaDiff := compareTables(table1, table2); schemaDiff != nil {
			result.SchemaDiffs[tableName] = schemaDiff
		}
	}

	return result
}

// Display prints the diff result in a human-readable format.
func Display(result *Result) {
	if len(result.SchemaDiffs) == 0 {
		fmt.Println("No differences found.")
		return
	}

	names := make([]string, 0, len(result.SchemaDiffs))
	for name := range result.SchemaDiffs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("=== Schema Differences ===")
	fmt.Println()
	for _, tableName := range names {
		displaySchemaDiff(tableName, result.SchemaDiffs[tableName])
	}
}

func displaySchemaDiff(tableName string, diff *SchemaDiff) {
	fmt.Printf("Table: %s\n", tableName)

	switch diff.Action {
	case ActionAdd:
		fmt.Printf("  Action: ADD (new table)\n")
		for _, def := range schema.ColumnsWithTypes(diff.NewTable.Columns) {
			fmt.Printf("    %s\n", def)
		}
	case ActionDrop:
		fmt.Printf("  Action: DROP (removed table)\n")
	case ActionModify:
		fmt.Printf("  Action: MODIFY\n")
		if len(diff.ColumnChanges) > 0 {
			fmt.Printf("  Column changes:\n")
			for _, change := range diff.ColumnChanges {
				fmt.Printf("    - %s: %s\n", change.ColumnName, change.Action)
			}
		}
		if len(diff.IndexChanges) > 0 {
			fmt.Printf("  Index changes:\n")
			for _, change := range diff.IndexChanges {
				fmt.Printf("    - %s: %s\n", change.IndexName, change.Action)
			}
		}
		if len(diff.ForeignKeyChanges) > 0 {
			fmt.Printf("  Foreign key changes:\n")
			for _, change := range diff.ForeignKeyChanges {
				fmt.Printf("    - %s: %s\n", change.FKName, change.Action)
			}
		}
		if diff.VersioningChanged {
			fmt.Printf("  System versioning changed\n")
		}
	}
	fmt.Println()
}
