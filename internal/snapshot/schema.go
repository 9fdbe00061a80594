package snapshot

import "database/sql"

const (
	// SQLite schema for storing schema snapshots
	createMetadataTable = `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	createTableSchemasTable = `
		CREATE TABLE IF NOT EXISTS table_schemas (
			table_name TEXT PRIMARY KEY,
			schema_json TEXT NOT NULL
		);
	`
)

// initializeSchema creates the necessary tables in the SQLite snapshot database
func initializeSchema(db *sql.DB) error {
	schemas := []string{
		createMetadataTable,
		createTableSchemasTable,
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			return err
		}
	}

	return nil
}
