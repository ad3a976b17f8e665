package library

import (
	"errors"
	"fmt"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

// Backend persists whole collections. Every Save call rewrites the
// collection; Load calls return ErrStorageMissing when the collection was
// never written.
type Backend interface {
	LoadUsers() ([]*User, error)
	LoadBooks() ([]*Book, error)
	LoadTransactions() ([]*Transaction, error)
	SaveUsers(users []*User) error
	SaveBooks(books []*Book) error
	SaveTransactions(txs []*Transaction) error
	Close() error
}

// Copy moves every collection from src to dst. Collections missing in src
// are skipped.
func Copy(dst, src Backend) error {
	users, err := src.LoadUsers()
	if err != nil && !errors.Is(err, ErrStorageMissing) {
		return fmt.Errorf("load users: %w", err)
	}
	if err == nil {
		if err := dst.SaveUsers(users); err != nil {
			return fmt.Errorf("save users: %w", err)
		}
	}

	books, err := src.LoadBooks()
	if err != nil && !errors.Is(err, ErrStorageMissing) {
		return fmt.Errorf("load books: %w", err)
	}
	if err == nil {
		if err := dst.SaveBooks(books); err != nil {
			return fmt.Errorf("save books: %w", err)
		}
	}

	txs, err := src.LoadTransactions()
	if err != nil && !errors.Is(err, ErrStorageMissing) {
		return fmt.Errorf("load transactions: %w", err)
	}
	if err == nil {
		if err := dst.SaveTransactions(txs); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
	}
	return nil
}

// Seed writes the default users and books and an empty transaction log.
// Without force it refuses to touch a backend that already holds users.
func Seed(b Backend, force bool) error {
	if !force {
		users, err := b.LoadUsers()
		if err == nil && len(users) > 0 {
			return fmt.Errorf("backend already has %d users; use --force to overwrite", len(users))
		}
	}
	if err := b.SaveUsers(DefaultUsers()); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	if err := b.SaveBooks(DefaultBooks()); err != nil {
		return fmt.Errorf("save books: %w", err)
	}
	if err := b.SaveTransactions(nil); err != nil {
		return fmt.Errorf("save transactions: %w", err)
	}
	return nil
}

// OpenBackend opens the text backend in dataDir or the sqlite database at dbPath.
func OpenBackend(kind, dataDir, dbPath string) (Backend, error) {
	switch kind {
	case BackendText:
		b, err := NewTextBackend(dataDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendSQLite:
		d, err := NewDatabase(dbPath)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown backend %q", kind)
}
