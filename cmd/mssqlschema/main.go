package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/koba/mssql-schema/internal/database"
	"github.com/koba/mssql-schema/internal/diff"
	"github.com/koba/mssql-schema/internal/procs"
	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/snapshot"
	"github.com/koba/mssql-schema/internal/sqltype"
	"github.com/koba/mssql-schema/internal/temporal"
)

var (
	tables        []string
	outputDir     string
	historySchema string
	historyTable  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mssqlschema",
	Short: "SQL Server schema inspection and mutation tool",
	Long:  `A tool to inspect SQL Server schemas, activate system versioning, smoke-test stored procedures and snapshot schema state.`,
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List all tables",
	Long:  `List every user table in the configured catalog.`,
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <table>",
	Short: "Show a table's schema",
	Long:  `Display the columns, indexes, foreign keys and versioning state of a table.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var temporalCmd = &cobra.Command{
	Use:   "temporal <table>",
	Short: "Activate system versioning on a table",
	Long:  `Add period columns, build a history table and enable system versioning on the named table.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTemporal,
}

var execProcCmd = &cobra.Command{
	Use:   "exec-proc <procedure>",
	Short: "Invoke a stored procedure with placeholder arguments",
	Long:  `Call a stored procedure using fixed sentinel values for every declared parameter and display the result set.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExecProc,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [name]",
	Short: "Create a schema snapshot",
	Long:  `Snapshot the catalog's table schemas into a SQLite file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

var diffCmd = &cobra.Command{
	Use:   "diff <snapshot1> <snapshot2>",
	Short: "Compare two schema snapshots",
	Long:  `Compare two schema snapshots and display the differences.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	temporalCmd.Flags().StringVar(&historySchema, "history-schema", "", "Schema for the history table (default: "+schema.DefaultSchema+")")
	temporalCmd.Flags().StringVar(&historyTable, "history-table", "", "Name of the history table (default: <table>"+temporal.HistorySuffix+")")

	snapshotCmd.Flags().StringSliceVar(&tables, "tables", nil, "Tables to snapshot (default: all tables)")
	snapshotCmd.Flags().StringVar(&outputDir, "output-dir", "./snapshots", "Output directory for snapshots")

	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(temporalCmd)
	rootCmd.AddCommand(execProcCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(diffCmd)
}

func connect(cmd *cobra.Command) (*database.Connection, error) {
	config, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	conn, err := database.Connect(cmd.Context(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

func runTables(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	names, err := conn.ListTables(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	table, err := conn.FindTable(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Table: %s\n", table.QualifiedName())
	if table.SystemVersioned {
		fmt.Printf("System versioned, history table: %s\n",
			schema.QualifiedName(table.HistorySchema, table.HistoryTable))
	}
	fmt.Println()

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"Column", "Type", "Nullable", "Default", "Hidden", "Description"})
	for _, col := range table.Columns {
		decl, err := sqltype.Declare(col.Type)
		if err != nil {
			decl = col.Type.Base.String()
		}
		w.Append([]string{
			col.Name,
			decl,
			fmt.Sprintf("%t", col.Nullable),
			col.Default,
			fmt.Sprintf("%t", col.Hidden),
			col.Description,
		})
	}
	w.Render()

	if len(table.Indexes) > 0 {
		fmt.Println()
		fmt.Println("Indexes:")
		for _, idx := range table.Indexes {
			kind := ""
			if idx.Primary {
				kind = " (primary)"
			} else if idx.Unique {
				kind = " (unique)"
			}
			fmt.Printf("  %s%s: %s\n", idx.Name, kind, strings.Join(idx.Columns, ", "))
		}
	}

	if len(table.ForeignKeys) > 0 {
		fmt.Println()
		fmt.Println("Foreign keys:")
		for _, fk := range table.ForeignKeys {
			fmt.Printf("  %s: %s -> %s(%s)\n", fk.Name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		}
	}
	return nil
}

func runTemporal(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	table, err := conn.FindTable(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	opts := temporal.Options{HistorySchema: historySchema, HistoryTable: historyTable}
	if err := temporal.Activate(cmd.Context(), conn, table, opts); err != nil {
		return fmt.Errorf("failed to activate system versioning: %w", err)
	}

	fmt.Printf("System versioning activated on %s, history table %s\n",
		table.QualifiedName(), schema.QualifiedName(table.HistorySchema, table.HistoryTable))
	return nil
}

func runExecProc(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	proc, err := conn.FindProcedure(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Executing %s with placeholder arguments:\n", schema.QualifiedName(proc.Schema, proc.Name))
	for _, param := range proc.Parameters {
		fmt.Printf("  %s (%s) = %v\n", param.Name, param.TypeName, procs.PlaceholderValue(param))
	}
	fmt.Println()

	result, err := procs.Execute(cmd.Context(), conn, proc)
	if err != nil {
		return err
	}

	if len(result.Columns) == 0 {
		fmt.Println("Procedure returned no result set.")
		return nil
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader(result.Columns)
	for _, row := range result.Rows {
		values := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			values[i] = fmt.Sprintf("%v", row[col])
		}
		w.Append(values)
	}
	w.Render()
	fmt.Printf("%d row(s)\n", len(result.Rows))
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	conn, err := connect(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	var filename string
	if len(args) > 0 {
		filename = args[0]
		if !strings.HasSuffix(filename, ".db") {
			filename += ".db"
		}
	} else {
		timestamp := time.Now().Format("2006-01-02-15-04-05")
		filename = fmt.Sprintf("%s-%s.db", conn.Database(), timestamp)
	}

	outputPath := filepath.Join(outputDir, filename)

	fmt.Printf("Creating snapshot: %s\n", outputPath)
	if err := snapshot.Create(cmd.Context(), conn, tables, outputPath); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	fmt.Printf("Snapshot created successfully: %s\n", outputPath)
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	fmt.Printf("Loading snapshot: %s\n", args[0])
	snap1, err := snapshot.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load snapshot1: %w", err)
	}

	fmt.Printf("Loading snapshot: %s\n", args[1])
	snap2, err := snapshot.Load(args[1])
	if err != nil {
		return fmt.Errorf("failed to load snapshot2: %w", err)
	}

	fmt.Printf("\n=== Comparing snapshots ===\n\n")
	result := diff.Compare(snap1, snap2)
	diff.Display(result)
	return nil
}
