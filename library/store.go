package library

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Store holds the in-memory collections and the backend they are flushed to.
type Store struct {
	Users        []*User
	Books        []*Book
	Transactions []*Transaction

	backend Backend
	log     *slog.Logger
}

// NewStore returns an empty store over backend. Call Load to fill it.
func NewStore(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{backend: backend, log: log}
}

// Load reads all three collections. Missing users or books are replaced by
// the default data and written back; a missing transaction log starts
// empty. Unreadable storage is logged and whatever was parsed is kept, so
// the returned error is informational and the store stays usable.
func (s *Store) Load() error {
	var errs []error

	users, err := s.backend.LoadUsers()
	switch {
	case errors.Is(err, ErrStorageMissing):
		s.log.Info("users not found, creating default data")
		users = DefaultUsers()
		if err := s.backend.SaveUsers(users); err != nil {
			s.log.Error("save default users", "err", err)
			errs = append(errs, err)
		}
	case err != nil:
		s.log.Error("read users", "err", err)
		errs = append(errs, err)
	default:
		s.log.Info("users loaded", "count", len(users))
	}
	s.Users = s.uniqueUsers(users)

	books, err := s.backend.LoadBooks()
	switch {
	case errors.Is(err, ErrStorageMissing):
		s.log.Info("books not found, creating default data")
		books = DefaultBooks()
		if err := s.backend.SaveBooks(books); err != nil {
			s.log.Error("save default books", "err", err)
			errs = append(errs, err)
		}
	case err != nil:
		s.log.Error("read books", "err", err)
		errs = append(errs, err)
	default:
		s.log.Info("books loaded", "count", len(books))
	}
	s.Books = s.uniqueBooks(books)

	txs, err := s.backend.LoadTransactions()
	switch {
	case errors.Is(err, ErrStorageMissing):
		s.log.Info("transactions not found, starting empty")
		txs = nil
	case err != nil:
		s.log.Error("read transactions", "err", err)
		errs = append(errs, err)
	default:
		s.log.Info("transactions loaded", "count", len(txs))
	}
	s.Transactions = txs

	return errors.Join(errs...)
}

// uniqueUsers keeps the first user for every ID and every login name.
// Users with an unknown role are kept as is.
func (s *Store) uniqueUsers(users []*User) []*User {
	ids := make(map[string]bool, len(users))
	names := make(map[string]bool, len(users))
	out := users[:0:0]
	for _, u := range users {
		if ids[u.ID] || names[u.Name] {
			s.log.Warn("skipping user", "id", u.ID, "name", u.Name, "err", ErrDuplicateID)
			continue
		}
		ids[u.ID], names[u.Name] = true, true
		if !u.Role.Known() {
			s.log.Warn("unknown role, no privileges granted", "id", u.ID, "role", u.Role)
		}
		out = append(out, u)
	}
	return out
}

// uniqueBooks keeps the first book for every ID.
func (s *Store) uniqueBooks(books []*Book) []*Book {
	ids := make(map[string]bool, len(books))
	out := books[:0:0]
	for _, b := range books {
		if ids[b.ID] {
			s.log.Warn("skipping book", "id", b.ID, "err", ErrDuplicateID)
			continue
		}
		ids[b.ID] = true
		out = append(out, b)
	}
	return out
}

// Save writes all three collections. Every collection is attempted even if
// an earlier one fails.
func (s *Store) Save() error {
	var errs []error
	if err := s.backend.SaveUsers(s.Users); err != nil {
		errs = append(errs, fmt.Errorf("save users: %w", err))
	}
	if err := s.SaveCirculation(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SaveCirculation writes the books and transactions touched by borrow and return.
func (s *Store) SaveCirculation() error {
	var errs []error
	if err := s.backend.SaveBooks(s.Books); err != nil {
		errs = append(errs, fmt.Errorf("save books: %w", err))
	}
	if err := s.backend.SaveTransactions(s.Transactions); err != nil {
		errs = append(errs, fmt.Errorf("save transactions: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Store) Close() error { return s.backend.Close() }

// Book returns the book with id, or nil.
func (s *Store) Book(id string) *Book {
	for _, b := range s.Books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// OpenTransaction returns the first unreturned transaction of userID for bookID, or nil.
func (s *Store) OpenTransaction(userID, bookID string) *Transaction {
	for _, t := range s.Transactions {
		if t.UserID == userID && t.BookID == bookID && t.Open() {
			return t
		}
	}
	return nil
}

// NextTransactionID returns "T" + (count + 1), advancing past IDs that are
// already taken.
func (s *Store) NextTransactionID() string {
	taken := make(map[string]bool, len(s.Transactions))
	for _, t := range s.Transactions {
		taken[t.ID] = true
	}
	for n := len(s.Transactions) + 1; ; n++ {
		id := "T" + strconv.Itoa(n)
		if !taken[id] {
			return id
		}
	}
}

// NextBookID returns the next "B%03d" ID after the highest numbered book.
func (s *Store) NextBookID() string {
	highest := 0
	for _, b := range s.Books {
		if n, err := strconv.Atoi(strings.TrimPrefix(b.ID, "B")); err == nil && strings.HasPrefix(b.ID, "B") && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("B%03d", highest+1)
}
