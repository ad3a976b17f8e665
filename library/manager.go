package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// LibraryManager is a thin façade over the Store, keeping console code simple.
type LibraryManager struct {
	store *Store
	log   *slog.Logger

	now            func() time.Time
	lenientReturns bool
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithClock replaces time.Now for borrow and return dates.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) { lm.now = now }
}

// WithLenientReturns lets Return mark a book available even when the
// session holds no open loan for it.
func WithLenientReturns(on bool) Option {
	return func(lm *LibraryManager) { lm.lenientReturns = on }
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.log = log }
}

// NewLibraryManager wraps a loaded store.
func NewLibraryManager(store *Store, opts ...Option) *LibraryManager {
	lm := &LibraryManager{store: store, now: time.Now, log: store.log}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// Close closes the underlying backend.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// Save flushes all collections.
func (lm *LibraryManager) Save() error { return lm.store.Save() }

func (lm *LibraryManager) today() string { return lm.now().Format(DateLayout) }

// ------------------ Listing ------------------

func (lm *LibraryManager) Books() []*Book               { return lm.store.Books }
func (lm *LibraryManager) Users() []*User               { return lm.store.Users }
func (lm *LibraryManager) Transactions() []*Transaction { return lm.store.Transactions }

// ------------------ Authentication ------------------

// Authenticate runs the login attempts against the loaded users.
func (lm *LibraryManager) Authenticate(src CredentialSource) (*Session, error) {
	s, err := Authenticate(lm.store.Users, src)
	if err != nil {
		lm.log.Warn("login failed", "err", err)
		return nil, err
	}
	lm.log.Info("login", "user", s.User.ID, "role", s.User.Role)
	return s, nil
}

// ------------------ Circulation ------------------

// Borrow lends the book to the session user and records a transaction. A
// save failure is returned wrapped in ErrPersist together with the
// transaction; the in-memory change stays.
func (lm *LibraryManager) Borrow(bookID string, s *Session) (*Transaction, error) {
	book := lm.store.Book(bookID)
	if book == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookID)
	}
	if !book.Available {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, bookID)
	}

	book.Available = false
	t := &Transaction{
		ID:           lm.store.NextTransactionID(),
		UserID:       s.User.ID,
		BookID:       bookID,
		DateBorrowed: lm.today(),
		DateReturned: ReturnedSentinel,
	}
	lm.store.Transactions = append(lm.store.Transactions, t)
	lm.log.Info("borrow", "book", bookID, "user", s.User.ID, "transaction", t.ID)

	return t, lm.persist()
}

// Return closes the session user's first open loan of the book and marks it
// available. Without an open loan it fails with ErrNoOpenLoan, unless
// lenient returns are enabled, in which case only availability changes and
// the returned transaction is nil.
func (lm *LibraryManager) Return(bookID string, s *Session) (*Transaction, error) {
	book := lm.store.Book(bookID)
	if book == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, bookID)
	}

	t := lm.store.OpenTransaction(s.User.ID, bookID)
	if t == nil && !lm.lenientReturns {
		return nil, fmt.Errorf("%w: %s", ErrNoOpenLoan, bookID)
	}

	book.Available = true
	if t != nil {
		t.DateReturned = lm.today()
		lm.log.Info("return", "book", bookID, "user", s.User.ID, "transaction", t.ID)
	} else {
		lm.log.Warn("return without open loan", "book", bookID, "user", s.User.ID)
	}

	return t, lm.persist()
}

func (lm *LibraryManager) persist() error {
	if err := lm.store.SaveCirculation(); err != nil {
		lm.log.Error("persist after change", "err", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// ------------------ Book helpers ------------------

// AddBook appends an available book with the next free ID and saves the catalog.
func (lm *LibraryManager) AddBook(title, author string) (*Book, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		return nil, fmt.Errorf("title and author are required")
	}
	b := &Book{ID: lm.store.NextBookID(), Title: title, Author: author, Available: true}
	lm.store.Books = append(lm.store.Books, b)
	if err := lm.store.backend.SaveBooks(lm.store.Books); err != nil {
		return b, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return b, nil
}

// ImportBooks reads "title,author" lines from r, appends every valid line
// as a new book and saves the catalog once. Lines with a different field
// count or blank values are skipped.
func (lm *LibraryManager) ImportBooks(r io.Reader) ([]*Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var added []*Book
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, fmt.Errorf("read listing: %w", err)
		}
		if len(rec) != 2 {
			continue
		}
		title, author := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if title == "" || author == "" {
			continue
		}
		b := &Book{ID: lm.store.NextBookID(), Title: title, Author: author, Available: true}
		lm.store.Books = append(lm.store.Books, b)
		added = append(added, b)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := lm.store.backend.SaveBooks(lm.store.Books); err != nil {
		return added, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return added, nil
}
