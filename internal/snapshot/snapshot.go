package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/koba/mssql-schema/internal/schema"
)

// Source is what a snapshot needs from the live catalog.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, schemaName, tableName string) (*schema.Table, error)
}

// Snapshot represents a point-in-time schema snapshot of a catalog. Tables
// are keyed by their schema-qualified name.
type Snapshot struct {
	Metadata map[string]string
	Tables   map[string]*schema.Table
}

// Create snapshots the schema of the given tables (or every table when none
// are named) into a SQLite file at outputPath.
func Create(ctx context.Context, src Source, tables []string, outputPath string) error {
	// Ensure output directory exists
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Remove existing snapshot file if it exists
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot: %w", err)
		}
	}

	snapshotDB, err := sql.Open("sqlite", outputPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot database: %w", err)
	}
	defer snapshotDB.Close()

	if err := initializeSchema(snapshotDB); err != nil {
		return fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	metadata := map[string]string{
		"snapshot_id": uuid.NewString(),
		"created_at":  time.Now().Format(time.RFC3339),
	}
	for key, value := range metadata {
		_, err := snapshotDB.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", key, value)
		if err != nil {
			return fmt.Errorf("failed to insert metadata: %w", err)
		}
	}

	if len(tables) == 0 {
		tables, err = src.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
	}

	for _, tableName := range tables {
		if err := snapshotTable(ctx, src, snapshotDB, tableName); err != nil {
			return fmt.Errorf("failed to snapshot table %s: %w", tableName, err)
		}
	}

	return nil
}

func snapshotTable(ctx context.Context, src Source, snapshotDB *sql.DB, tableName string) error {
	schemaName := schema.DefaultSchema
	name := tableName
	if i := strings.Index(tableName, "."); i >= 0 {
		schemaName, name = tableName[:i], tableName[i+1:]
	}

	table, err := src.GetTable(ctx, schemaName, name)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	schemaJSON, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	_, err = snapshotDB.Exec(
		"INSERT INTO table_schemas (table_name, schema_json) VALUES (?, ?)",
		schemaName+"."+name,
		string(schemaJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schema: %w", err)
	}
	return nil
}

// Load loads a snapshot from a SQLite file.
func Load(snapshotPath string) (*Snapshot, error) {
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: snapshot file %s", schema.ErrNotFound, snapshotPath)
	}

	db, err := sql.Open("sqlite", snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	snapshot := &Snapshot{
		Metadata: make(map[string]string),
		Tables:   make(map[string]*schema.Table),
	}

	rows, err := db.Query("SELECT key, value FROM metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		snapshot.Metadata[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	schemaRows, err := db.Query("SELECT table_name, schema_json FROM table_schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to query table schemas: %w", err)
	}
	defer schemaRows.Close()

	for schemaRows.Next() {
		var tableName, schemaJSON string
		if err := schemaRows.Scan(&tableName, &schemaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan table schema: %w", err)
		}

		var table schema.Table
		if err := json.Unmarshal([]byte(schemaJSON), &table); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
		}
		snapshot.Tables[tableName] = &table
	}

	return snapshot, schemaRows.Err()
}
