package library

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	borrowDay = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	returnDay = time.Date(2026, 10, 26, 17, 30, 0, 0, time.UTC)
)

// newManager returns a manager over a freshly bootstrapped text store.
func newManager(t *testing.T, opts ...Option) (*LibraryManager, *TextBackend) {
	t.Helper()
	backend, err := NewTextBackend(t.TempDir())
	require.NoError(t, err)
	store := NewStore(backend, nil)
	require.NoError(t, store.Load())
	mgr := NewLibraryManager(store, append([]Option{WithClock(func() time.Time { return borrowDay })}, opts...)...)
	t.Cleanup(func() { mgr.Close() })
	return mgr, backend
}

func sessionFor(t *testing.T, mgr *LibraryManager, id string) *Session {
	t.Helper()
	for _, u := range mgr.Users() {
		if u.ID == id {
			return &Session{User: u}
		}
	}
	t.Fatalf("no user %s", id)
	return nil
}

func TestBorrowAvailableBook(t *testing.T) {
	mgr, backend := newManager(t)
	s := sessionFor(t, mgr, "U001")

	tx, err := mgr.Borrow("B001", s)
	require.NoError(t, err)
	require.Equal(t, &Transaction{
		ID:           "T1",
		UserID:       "U001",
		BookID:       "B001",
		DateBorrowed: "2026-10-19",
		DateReturned: ReturnedSentinel,
	}, tx)
	require.False(t, mgr.store.Book("B001").Available)
	require.Len(t, mgr.Transactions(), 1)

	// Persisted immediately.
	books, err := backend.LoadBooks()
	require.NoError(t, err)
	require.False(t, books[0].Available)
	txs, err := backend.LoadTransactions()
	require.NoError(t, err)
	require.Equal(t, []*Transaction{tx}, txs)
}

func TestBorrowUnknownBookLeavesStateUnchanged(t *testing.T) {
	mgr, _ := newManager(t)
	s := sessionFor(t, mgr, "U001")

	_, err := mgr.Borrow("B999", s)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, mgr.Transactions())
	for _, b := range mgr.Books() {
		require.True(t, b.Available, b.ID)
	}
}

func TestBorrowUnavailableBook(t *testing.T) {
	mgr, _ := newManager(t)
	john := sessionFor(t, mgr, "U001")
	jane := sessionFor(t, mgr, "U002")

	_, err := mgr.Borrow("B002", john)
	require.NoError(t, err)

	_, err = mgr.Borrow("B002", jane)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Len(t, mgr.Transactions(), 1)
	require.False(t, mgr.store.Book("B002").Available)

	// Same user borrowing twice is also refused.
	_, err = mgr.Borrow("B002", john)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestBorrowThenReturn(t *testing.T) {
	mgr, _ := newManager(t)
	s := sessionFor(t, mgr, "U001")

	_, err := mgr.Borrow("B001", s)
	require.NoError(t, err)

	mgr.now = func() time.Time { return returnDay }
	tx, err := mgr.Return("B001", s)
	require.NoError(t, err)
	require.Equal(t, "T1", tx.ID)
	require.Equal(t, "2026-10-26", tx.DateReturned)
	require.False(t, tx.Open())
	require.True(t, mgr.store.Book("B001").Available)
}

func TestReturnThenBorrowAllocatesNewTransaction(t *testing.T) {
	mgr, _ := newManager(t)
	s := sessionFor(t, mgr, "U002")

	first, err := mgr.Borrow("B003", s)
	require.NoError(t, err)
	_, err = mgr.Return("B003", s)
	require.NoError(t, err)
	second, err := mgr.Borrow("B003", s)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, "T2", second.ID)
	require.True(t, second.Open())
	require.False(t, first.Open())
}

func TestReturnUnknownBook(t *testing.T) {
	mgr, _ := newManager(t)
	_, err := mgr.Return("nope", sessionFor(t, mgr, "U001"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReturnWithoutOpenLoan(t *testing.T) {
	mgr, _ := newManager(t)
	john := sessionFor(t, mgr, "U001")
	jane := sessionFor(t, mgr, "U002")

	// Never borrowed.
	_, err := mgr.Return("B001", john)
	require.ErrorIs(t, err, ErrNoOpenLoan)

	// Borrowed by someone else: still out.
	_, err = mgr.Borrow("B001", jane)
	require.NoError(t, err)
	_, err = mgr.Return("B001", john)
	require.ErrorIs(t, err, ErrNoOpenLoan)
	require.False(t, mgr.store.Book("B001").Available)
	require.True(t, mgr.Transactions()[0].Open())
}

func TestLenientReturnFlipsAvailability(t *testing.T) {
	mgr, _ := newManager(t, WithLenientReturns(true))
	john := sessionFor(t, mgr, "U001")
	jane := sessionFor(t, mgr, "U002")

	_, err := mgr.Borrow("B001", jane)
	require.NoError(t, err)

	tx, err := mgr.Return("B001", john)
	require.NoError(t, err)
	require.Nil(t, tx)
	require.True(t, mgr.store.Book("B001").Available)
	// Jane's loan is untouched.
	require.True(t, mgr.Transactions()[0].Open())
}

func TestReturnClosesOnlyFirstOpenLoan(t *testing.T) {
	mgr, _ := newManager(t)
	s := sessionFor(t, mgr, "U001")
	mgr.store.Transactions = []*Transaction{
		{ID: "T1", UserID: "U001", BookID: "B001", DateBorrowed: "2026-10-01", DateReturned: ReturnedSentinel},
		{ID: "T2", UserID: "U001", BookID: "B001", DateBorrowed: "2026-10-02", DateReturned: ReturnedSentinel},
	}

	_, err := mgr.Return("B001", s)
	require.NoError(t, err)
	require.False(t, mgr.Transactions()[0].Open())
	require.True(t, mgr.Transactions()[1].Open())
}

type failingBackend struct {
	*TextBackend
}

func (failingBackend) SaveBooks([]*Book) error { return errors.New("disk full") }

func TestBorrowKeepsChangeWhenSaveFails(t *testing.T) {
	text, err := NewTextBackend(t.TempDir())
	require.NoError(t, err)
	store := NewStore(failingBackend{text}, nil)
	_ = store.Load() // default books cannot be written

	mgr := NewLibraryManager(store)
	s := &Session{User: store.Users[0]}

	tx, err := mgr.Borrow("B001", s)
	require.ErrorIs(t, err, ErrPersist)
	require.NotNil(t, tx)
	require.False(t, store.Book("B001").Available)
	require.Len(t, store.Transactions, 1)
}

func TestNextTransactionIDSkipsTakenIDs(t *testing.T) {
	mgr, _ := newManager(t)
	mgr.store.Transactions = []*Transaction{
		{ID: "T2", UserID: "U001", BookID: "B002", DateBorrowed: "2026-10-01", DateReturned: "2026-10-02"},
	}

	tx, err := mgr.Borrow("B001", sessionFor(t, mgr, "U001"))
	require.NoError(t, err)
	require.Equal(t, "T3", tx.ID)
}

func TestAddBook(t *testing.T) {
	mgr, backend := newManager(t)

	b, err := mgr.AddBook("  Dune ", "Frank Herbert")
	require.NoError(t, err)
	require.Equal(t, &Book{ID: "B004", Title: "Dune", Author: "Frank Herbert", Available: true}, b)

	books, err := backend.LoadBooks()
	require.NoError(t, err)
	require.Len(t, books, 4)

	_, err = mgr.AddBook("", "Nobody")
	require.Error(t, err)
}

func TestImportBooks(t *testing.T) {
	mgr, backend := newManager(t)
	listing := strings.Join([]string{
		"Brave New World,Aldous Huxley",
		"no author line",
		"Emma, Jane Austen",
		",Missing Title",
		`"Dune, Part One",Frank Herbert`,
	}, "\n")

	added, err := mgr.ImportBooks(strings.NewReader(listing))
	require.NoError(t, err)
	require.Len(t, added, 3)
	require.Equal(t, "B004", added[0].ID)
	require.Equal(t, "Emma", added[1].Title)
	require.Equal(t, "Jane Austen", added[1].Author)
	require.Equal(t, "B006", added[2].ID)
	require.Equal(t, "Dune, Part One", added[2].Title)

	books, err := backend.LoadBooks()
	require.NoError(t, err)
	require.Len(t, books, 6)
	require.Equal(t, "Dune, Part One", books[5].Title)
}
