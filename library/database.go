package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database stores catalog snapshots in SQLite.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	err := db.Get(&current, `SELECT value FROM meta WHERE key='schema_version';`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            year TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            position INTEGER PRIMARY KEY,
            username TEXT NOT NULL,
            title TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_username ON loans(username);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Catalog snapshots
// ---------------------------------------------------------------------------

type bookRow struct {
	ID       string `db:"id"`
	Position int    `db:"position"`
	Title    string `db:"title"`
	Author   string `db:"author"`
	Year     string `db:"year"`
}

// SaveCatalog replaces the stored snapshot with the current catalog state.
func (d *Database) SaveCatalog(ctx context.Context, c *Catalog) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans`); err != nil {
		return fmt.Errorf("clear loans: %w", err)
	}

	for i, e := range c.Entries() {
		row := bookRow{ID: e.ID.String(), Position: i, Title: e.Book.Title, Author: e.Book.Author, Year: e.Book.Year}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO books(id,position,title,author,year) VALUES(:id,:position,:title,:author,:year)`, row); err != nil {
			return fmt.Errorf("insert book %q: %w", e.Book.Title, err)
		}
	}
	for i, l := range c.Loans() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO loans(position,username,title) VALUES(?,?,?)`, i, l.Username, l.Title); err != nil {
			return fmt.Errorf("insert loan %q: %w", l.Title, err)
		}
	}
	return tx.Commit()
}

// LoadCatalog restores the stored snapshot. An empty database yields an empty
// catalog.
func (d *Database) LoadCatalog(ctx context.Context, accounts Accounts) (*Catalog, error) {
	var rows []bookRow
	if err := d.db.SelectContext(ctx, &rows, `SELECT id,position,title,author,year FROM books ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("book %q has invalid id: %w", r.Title, err)
		}
		entries = append(entries, Entry{ID: id, Book: Book{Title: r.Title, Author: r.Author, Year: r.Year}})
	}

	var loans []Loan
	if err := d.db.SelectContext(ctx, &loans, `SELECT username,title FROM loans ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load loans: %w", err)
	}
	return RestoreCatalog(accounts, entries, loans), nil
}

// CountBooks returns the number of books on the stored shelf.
func (d *Database) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := d.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
		return 0, err
	}
	return n, nil
}
