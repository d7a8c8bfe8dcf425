package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dialectPostgres = "pgx"
	dialectSQLite   = "sqlite3"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite and implements the repositories.
type DB struct {
	Client  *sql.DB
	dialect string
}

// NewDB opens the database named by url and creates the schema.
// Postgres URLs use pgx; "sqlite://path" uses go-sqlite3.
func NewDB(ctx context.Context, url string) (*DB, error) {
	driver, dsn := driverFor(url)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == dialectSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY churn
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	d := &DB{Client: db, dialect: driver}
	if err := db.PingContext(ctx); err != nil {
		return d, fmt.Errorf("ping: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		return d, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func driverFor(url string) (driver, dsn string) {
	if path, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return dialectSQLite, "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	}
	return dialectPostgres, url
}

// Ping verifies connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return sql.ErrConnDone
	}
	return d.Client.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := postgresSchema
	if d.dialect == dialectSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
