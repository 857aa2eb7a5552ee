package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sagarc03/shelf"

	_ "modernc.org/sqlite" // SQLite driver
)

// busyTimeoutMillis bounds how long a writer waits for the database lock
// before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables shelf.Tables
}

// Connect opens a SQLite database. The connection is not verified until Ping.
func Connect(ctx context.Context, dsn string, tables shelf.Tables) (*database, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	memory := isMemoryDSN(dsn)
	if !memory {
		dsn = withFilePragmas(dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// An in-memory database lives only as long as its connection.
	if memory {
		db.SetMaxOpenConns(1)
	}

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w: %w", shelf.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate creates the items table and its indexes if they do not exist.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// GetRepo returns the ItemRepo backed by this database.
func (d *database) GetRepo() shelf.ItemRepo {
	return &repo{db: d.db, tableName: d.tables.Items}
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// withFilePragmas lets concurrent connections to a database file share it:
// WAL keeps readers off the writer's lock and busy_timeout queues writers
// instead of failing them. Pragmas already present in dsn are kept.
func withFilePragmas(dsn string) string {
	pragmas := []struct{ name, value string }{
		{"busy_timeout", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis)},
		{"journal_mode", "journal_mode(WAL)"},
	}

	for _, p := range pragmas {
		if strings.Contains(dsn, "_pragma="+p.name) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=" + p.value
	}
	return dsn
}
