package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	return config.Path
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) InsertIgnore(table string, columns []string, conflictColumns []string) string {
	return "INSERT OR IGNORE INTO " + table + " (" + strings.Join(columns, ", ") + ") " +
		"VALUES (" + placeholderList(len(columns)) + ")"
}

func (d *SQLiteDialect) UpsertAdd(table string, keyColumns []string, addColumns []string) string {
	all := append(append([]string{}, keyColumns...), addColumns...)
	sets := make([]string, len(addColumns))
	for i, col := range addColumns {
		sets[i] = col + " = " + col + " + excluded." + col
	}
	return "INSERT INTO " + table + " (" + strings.Join(all, ", ") + ") " +
		"VALUES (" + placeholderList(len(all)) + ") " +
		"ON CONFLICT(" + strings.Join(keyColumns, ", ") + ") DO UPDATE SET " +
		strings.Join(sets, ", ")
}
