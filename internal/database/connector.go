package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/denisenkom/go-mssqldb"
	"github.com/joho/godotenv"

	"github.com/koba/mssql-schema/internal/schema"
)

// Config holds SQL Server connection configuration
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Encrypt  string // "disable", "false" or "true"
}

// LoadConfigFromEnv loads connection configuration from MSSQL_* environment
// variables, reading a .env file first when one is present.
func LoadConfigFromEnv() (Config, error) {
	// Missing .env is fine, the variables may already be exported.
	_ = godotenv.Load()

	host := os.Getenv("MSSQL_HOST")
	if host == "" {
		host = "localhost"
	}

	database := os.Getenv("MSSQL_DATABASE")
	if database == "" {
		return Config{}, fmt.Errorf("%w: MSSQL_DATABASE environment variable is required", schema.ErrInvalidArgument)
	}

	port := os.Getenv("MSSQL_PORT")
	if port == "" {
		port = "1433"
	}

	encrypt := os.Getenv("MSSQL_ENCRYPT")
	if encrypt == "" {
		encrypt = "disable"
	}

	return Config{
		Host:     host,
		Port:     port,
		Database: database,
		User:     os.Getenv("MSSQL_USER"),
		Password: os.Getenv("MSSQL_PASSWORD"),
		Encrypt:  encrypt,
	}, nil
}

// dsn builds the sqlserver connection URL.
func (c Config) dsn() string {
	query := url.Values{}
	query.Add("database", c.Database)
	query.Add("encrypt", c.Encrypt)
	query.Add("TrustServerCertificate", "true")

	connURL := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		RawQuery: query.Encode(),
	}
	return connURL.String()
}

// Connection is an open handle to a SQL Server catalog. It implements
// schema.Store.
type Connection struct {
	config Config
	db     *sql.DB
}

// Connect opens a connection, verifies the server is reachable and checks
// that the named catalog exists on the server (case-insensitive match).
func Connect(ctx context.Context, config Config) (*Connection, error) {
	db, err := sql.Open("sqlserver", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	ping := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(func() error { return db.PingContext(ctx) }, ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping server: %w", err)
	}

	conn := &Connection{config: config, db: db}
	if err := conn.checkCatalog(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return conn, nil
}

// Open wraps an already-open handle, for callers that manage their own pool.
// The catalog check still applies.
func Open(ctx context.Context, db *sql.DB, database string) (*Connection, error) {
	conn := &Connection{config: Config{Database: database}, db: db}
	if err := conn.checkCatalog(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Close closes the underlying handle.
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Database returns the catalog name this connection targets.
func (c *Connection) Database() string {
	return c.config.Database
}

// checkCatalog verifies the configured catalog is among the server's
// databases, matching the name case-insensitively.
func (c *Connection) checkCatalog(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, "SELECT name FROM sys.databases")
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan catalog name: %w", err)
		}
		if strings.EqualFold(name, c.config.Database) {
			return rows.Err()
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: catalog %q on server %s", schema.ErrNotFound, c.config.Database, c.config.Host)
}

// timeout applied to single statements when the caller passed no deadline.
const defaultStatementTimeout = 5 * time.Minute

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultStatementTimeout)
}
