package library

import "errors"

var (
	// ErrNotFound is returned when no book has the requested ID.
	ErrNotFound = errors.New("book not found")
	// ErrUnavailable is returned when borrowing a book that is already out.
	ErrUnavailable = errors.New("book unavailable")
	// ErrNoOpenLoan is returned when the user has no unreturned transaction for the book.
	ErrNoOpenLoan = errors.New("no open loan for this book")
	// ErrAuthFailed is returned after the last failed login attempt.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrStorageMissing means a collection was never written.
	ErrStorageMissing = errors.New("storage missing")
	// ErrStorageUnreadable means a collection exists but could not be read.
	ErrStorageUnreadable = errors.New("storage unreadable")
	// ErrDuplicateID marks a record skipped at load because its key was already taken.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrPersist wraps a backend failure after an in-memory change.
	ErrPersist = errors.New("save failed")
)
