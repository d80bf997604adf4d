// Package database provides SQLite persistence for client applications,
// operator accounts, directory users and catalog items.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const memoryPath = ":memory:"

type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. ":memory:" gives a private database that lives as long as
// the store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dataSourceName(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// every pooled connection to :memory: would otherwise see its own database
	if dbPath == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database schema: couldn't enable foreign keys: %v", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func dataSourceName(dbPath string) string {
	if dbPath == memoryPath {
		return dbPath
	}
	return dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
}

func initSchema(db *sqlx.DB) error {
	if err := initTable(db, "operators", `
		CREATE TABLE IF NOT EXISTS operators (
			id          INTEGER PRIMARY KEY,
			handle      TEXT NOT NULL UNIQUE,
			secret      BLOB NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "client_apps", `
		CREATE TABLE IF NOT EXISTS client_apps (
			id           INTEGER PRIMARY KEY,
			app_id       TEXT NOT NULL UNIQUE,
			secret_hash  BLOB NOT NULL,
			name         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			is_active    INTEGER NOT NULL DEFAULT 1,
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "items", `
		CREATE TABLE IF NOT EXISTS items (
			id           INTEGER PRIMARY KEY,
			name         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			price        REAL NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			created_by   TEXT NOT NULL,
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS items_status ON items (status);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id             INTEGER PRIMARY KEY,
			username       TEXT NOT NULL UNIQUE,
			email          TEXT NOT NULL UNIQUE,
			full_name      TEXT NOT NULL DEFAULT '',
			role           TEXT NOT NULL DEFAULT 'user',
			is_active      INTEGER NOT NULL DEFAULT 1,
			password_hash  BLOB NOT NULL,
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sqlx.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
