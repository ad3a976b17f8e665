package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleData() ([]*User, []*Book, []*Transaction) {
	users := []*User{
		{ID: "U002", Name: "Jane Smith", Secret: "abc123", Role: RoleUser},
		{ID: "A001", Name: "Admin", Secret: "admin123", Role: RoleAdmin},
		{ID: "U001", Name: "John Doe", Secret: "pass123", Role: RoleUser},
	}
	books := []*Book{
		{ID: "B003", Title: "1984", Author: "George Orwell", Available: false},
		{ID: "B001", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Available: true},
	}
	txs := []*Transaction{
		{ID: "T1", UserID: "U001", BookID: "B001", DateBorrowed: "2026-10-01", DateReturned: "2026-10-05"},
		{ID: "T2", UserID: "U002", BookID: "B003", DateBorrowed: "2026-10-06", DateReturned: ReturnedSentinel},
	}
	return users, books, txs
}

func TestTextBackendRoundTrip(t *testing.T) {
	b, err := NewTextBackend(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	users, books, txs := sampleData()

	require.NoError(t, b.SaveUsers(users))
	require.NoError(t, b.SaveBooks(books))
	require.NoError(t, b.SaveTransactions(txs))

	gotUsers, err := b.LoadUsers()
	require.NoError(t, err)
	require.Equal(t, users, gotUsers)

	gotBooks, err := b.LoadBooks()
	require.NoError(t, err)
	require.Equal(t, books, gotBooks)

	gotTxs, err := b.LoadTransactions()
	require.NoError(t, err)
	require.Equal(t, txs, gotTxs)
}

func TestTextBackendFileFormat(t *testing.T) {
	dir := t.TempDir()
	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	users, books, txs := sampleData()
	require.NoError(t, b.SaveUsers(users[:1]))
	require.NoError(t, b.SaveBooks(books))
	require.NoError(t, b.SaveTransactions(txs[1:]))

	raw, err := os.ReadFile(filepath.Join(dir, UsersFile))
	require.NoError(t, err)
	require.Equal(t, "U002,Jane Smith,abc123,user\n", string(raw))

	raw, err = os.ReadFile(filepath.Join(dir, BooksFile))
	require.NoError(t, err)
	require.Equal(t, "B003,1984,George Orwell,false\nB001,The Great Gatsby,F. Scott Fitzgerald,true\n", string(raw))

	raw, err = os.ReadFile(filepath.Join(dir, TransactionsFile))
	require.NoError(t, err)
	require.Equal(t, "T2,U002,B003,2026-10-06,null\n", string(raw))
}

func TestTextBackendMissingFiles(t *testing.T) {
	b, err := NewTextBackend(t.TempDir())
	require.NoError(t, err)

	_, err = b.LoadUsers()
	require.ErrorIs(t, err, ErrStorageMissing)
	_, err = b.LoadBooks()
	require.ErrorIs(t, err, ErrStorageMissing)
	_, err = b.LoadTransactions()
	require.ErrorIs(t, err, ErrStorageMissing)
}

func TestTextBackendSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := "B001,Dune,Frank Herbert,true\n" +
		"B002,missing fields\n" +
		"\n" +
		"B003,Emma,Jane Austen,TRUE\n" +
		"B004,Ulysses,James Joyce,yes\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(content), 0o644))

	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	books, err := b.LoadBooks()
	require.NoError(t, err)
	require.Equal(t, []*Book{
		{ID: "B001", Title: "Dune", Author: "Frank Herbert", Available: true},
		{ID: "B003", Title: "Emma", Author: "Jane Austen", Available: true},
		{ID: "B004", Title: "Ulysses", Author: "James Joyce", Available: false},
	}, books)
}

func TestTextBackendUnreadable(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be can be opened but not read.
	require.NoError(t, os.Mkdir(filepath.Join(dir, UsersFile), 0o755))

	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	_, err = b.LoadUsers()
	require.ErrorIs(t, err, ErrStorageUnreadable)
}

func TestTextBackendSaveReplacesFile(t *testing.T) {
	dir := t.TempDir()
	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	_, books, _ := sampleData()

	require.NoError(t, b.SaveBooks(books))
	require.NoError(t, b.SaveBooks(books[:1]))

	got, err := b.LoadBooks()
	require.NoError(t, err)
	require.Len(t, got, 1)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTextBackendQuoteStaysOnItsLine(t *testing.T) {
	dir := t.TempDir()
	content := "B001,Dune,Frank Herbert,true\n" +
		"B002,\"Salem's Lot\" (1975),Stephen King,true\n" +
		"B003,Emma,Jane Austen,false\n" +
		"B004,\"Unclosed,Nobody,true\n" +
		"B005,Ulysses,James Joyce,true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, BooksFile), []byte(content), 0o644))

	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	books, err := b.LoadBooks()
	require.NoError(t, err)
	require.Equal(t, []*Book{
		{ID: "B001", Title: "Dune", Author: "Frank Herbert", Available: true},
		{ID: "B002", Title: `"Salem's Lot" (1975)`, Author: "Stephen King", Available: true},
		{ID: "B003", Title: "Emma", Author: "Jane Austen", Available: false},
		{ID: "B004", Title: `"Unclosed`, Author: "Nobody", Available: true},
		{ID: "B005", Title: "Ulysses", Author: "James Joyce", Available: true},
	}, books)

	// Saved titles with quotes, commas or newlines read back on one line each.
	books = append(books, &Book{ID: "B006", Title: "Bread, Wine", Author: "Two\nLines", Available: true})
	require.NoError(t, b.SaveBooks(books))
	got, err := b.LoadBooks()
	require.NoError(t, err)
	require.Len(t, got, 6)
	require.Equal(t, `"Salem's Lot" (1975)`, got[1].Title)
	require.Equal(t, "Bread, Wine", got[5].Title)
	require.Equal(t, "Two Lines", got[5].Author)
	require.Equal(t, "B005", got[4].ID)
}

func TestTextBackendDropsTrailingEmptyFields(t *testing.T) {
	dir := t.TempDir()
	content := "T1,U001,B001,2026-10-01,\n" +
		"T2,U002,B002,2026-10-02,null\n" +
		"T3,U002,B003,2026-10-03,2026-10-04,,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, TransactionsFile), []byte(content), 0o644))

	b, err := NewTextBackend(dir)
	require.NoError(t, err)
	txs, err := b.LoadTransactions()
	require.NoError(t, err)
	require.Equal(t, []*Transaction{
		{ID: "T2", UserID: "U002", BookID: "B002", DateBorrowed: "2026-10-02", DateReturned: ReturnedSentinel},
		{ID: "T3", UserID: "U002", BookID: "B003", DateBorrowed: "2026-10-03", DateReturned: "2026-10-04"},
	}, txs)
}
