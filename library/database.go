package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite Backend. Each collection lives in its own table and
// keeps its order through a position column.
type Database struct {
	db *sqlx.DB

	insertUserStmt *sqlx.Stmt
	insertBookStmt *sqlx.Stmt
	insertTxStmt   *sqlx.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sqlx.Stmt{d.insertUserStmt, d.insertBookStmt, d.insertTxStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

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
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            name TEXT NOT NULL,
            secret TEXT NOT NULL,
            role TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            position INTEGER PRIMARY KEY,
            id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            book_id TEXT NOT NULL,
            date_borrowed TEXT NOT NULL,
            date_returned TEXT NOT NULL DEFAULT 'null'
        );`,
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
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertUserStmt, err = d.db.Preparex(`INSERT INTO users(position,id,name,secret,role) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertBookStmt, err = d.db.Preparex(`INSERT INTO books(position,id,title,author,available) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if d.insertTxStmt, err = d.db.Preparex(`INSERT INTO transactions(position,id,user_id,book_id,date_borrowed,date_returned) VALUES(?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

type userRow struct {
	ID     string `db:"id"`
	Name   string `db:"name"`
	Secret string `db:"secret"`
	Role   string `db:"role"`
}

type transactionRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	BookID       string `db:"book_id"`
	DateBorrowed string `db:"date_borrowed"`
	DateReturned string `db:"date_returned"`
}

func (d *Database) LoadUsers() ([]*User, error) {
	if err := d.written("users"); err != nil {
		return nil, err
	}
	var rows []userRow
	if err := d.db.Select(&rows, `SELECT id,name,secret,role FROM users ORDER BY position`); err != nil {
		return nil, fmt.Errorf("users: %w: %v", ErrStorageUnreadable, err)
	}
	users := make([]*User, 0, len(rows))
	for _, r := range rows {
		users = append(users, &User{ID: r.ID, Name: r.Name, Secret: r.Secret, Role: Role(r.Role)})
	}
	return users, nil
}

func (d *Database) LoadBooks() ([]*Book, error) {
	if err := d.written("books"); err != nil {
		return nil, err
	}
	var books []*Book
	if err := d.db.Select(&books, `SELECT id,title,author,available FROM books ORDER BY position`); err != nil {
		return nil, fmt.Errorf("books: %w: %v", ErrStorageUnreadable, err)
	}
	return books, nil
}

func (d *Database) LoadTransactions() ([]*Transaction, error) {
	if err := d.written("transactions"); err != nil {
		return nil, err
	}
	var rows []transactionRow
	if err := d.db.Select(&rows, `SELECT id,user_id,book_id,date_borrowed,date_returned FROM transactions ORDER BY position`); err != nil {
		return nil, fmt.Errorf("transactions: %w: %v", ErrStorageUnreadable, err)
	}
	txs := make([]*Transaction, 0, len(rows))
	for _, r := range rows {
		t := Transaction(r)
		txs = append(txs, &t)
	}
	return txs, nil
}

func (d *Database) SaveUsers(users []*User) error {
	return d.rewrite("users", func(tx *sqlx.Tx) error {
		stmt := tx.Stmtx(d.insertUserStmt)
		for i, u := range users {
			if _, err := stmt.Exec(i, u.ID, u.Name, u.Secret, string(u.Role)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Database) SaveBooks(books []*Book) error {
	return d.rewrite("books", func(tx *sqlx.Tx) error {
		stmt := tx.Stmtx(d.insertBookStmt)
		for i, b := range books {
			if _, err := stmt.Exec(i, b.ID, b.Title, b.Author, b.Available); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Database) SaveTransactions(txs []*Transaction) error {
	return d.rewrite("transactions", func(tx *sqlx.Tx) error {
		stmt := tx.Stmtx(d.insertTxStmt)
		for i, t := range txs {
			if _, err := stmt.Exec(i, t.ID, t.UserID, t.BookID, t.DateBorrowed, t.DateReturned); err != nil {
				return err
			}
		}
		return nil
	})
}

// rewrite replaces the table contents in one transaction and marks the
// collection as written.
func (d *Database) rewrite(table string, insert func(tx *sqlx.Tx) error) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	if err := insert(tx); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES(?,'1') ON CONFLICT(key) DO NOTHING`, "written:"+table); err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	return tx.Commit()
}

func (d *Database) written(table string) error {
	var ok bool
	if err := d.db.Get(&ok, `SELECT EXISTS(SELECT 1 FROM meta WHERE key=?)`, "written:"+table); err != nil {
		return fmt.Errorf("%s: %w: %v", table, ErrStorageUnreadable, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", table, ErrStorageMissing)
	}
	return nil
}
