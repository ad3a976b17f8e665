package library

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	UsersFile        = "users.txt"
	BooksFile        = "books.txt"
	TransactionsFile = "transactions.txt"
)

// TextBackend stores each collection as a comma separated file in one
// directory, one record per line.
type TextBackend struct {
	dir string
}

// NewTextBackend creates dir if needed so first-run succeeds.
func NewTextBackend(dir string) (*TextBackend, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &TextBackend{dir: dir}, nil
}

func (b *TextBackend) Close() error { return nil }

func (b *TextBackend) LoadUsers() ([]*User, error) {
	recs, err := b.readRecords(UsersFile, 4)
	users := make([]*User, 0, len(recs))
	for _, r := range recs {
		users = append(users, &User{ID: r[0], Name: r[1], Secret: r[2], Role: Role(r[3])})
	}
	return users, err
}

func (b *TextBackend) LoadBooks() ([]*Book, error) {
	recs, err := b.readRecords(BooksFile, 4)
	books := make([]*Book, 0, len(recs))
	for _, r := range recs {
		books = append(books, &Book{
			ID:        r[0],
			Title:     r[1],
			Author:    r[2],
			Available: strings.EqualFold(strings.TrimSpace(r[3]), "true"),
		})
	}
	return books, err
}

func (b *TextBackend) LoadTransactions() ([]*Transaction, error) {
	recs, err := b.readRecords(TransactionsFile, 5)
	txs := make([]*Transaction, 0, len(recs))
	for _, r := range recs {
		txs = append(txs, &Transaction{ID: r[0], UserID: r[1], BookID: r[2], DateBorrowed: r[3], DateReturned: r[4]})
	}
	return txs, err
}

func (b *TextBackend) SaveUsers(users []*User) error {
	recs := make([][]string, 0, len(users))
	for _, u := range users {
		recs = append(recs, []string{u.ID, u.Name, u.Secret, string(u.Role)})
	}
	return b.writeRecords(UsersFile, recs)
}

func (b *TextBackend) SaveBooks(books []*Book) error {
	recs := make([][]string, 0, len(books))
	for _, bk := range books {
		recs = append(recs, []string{bk.ID, bk.Title, bk.Author, strconv.FormatBool(bk.Available)})
	}
	return b.writeRecords(BooksFile, recs)
}

func (b *TextBackend) SaveTransactions(txs []*Transaction) error {
	recs := make([][]string, 0, len(txs))
	for _, t := range txs {
		recs = append(recs, []string{t.ID, t.UserID, t.BookID, t.DateBorrowed, t.DateReturned})
	}
	return b.writeRecords(TransactionsFile, recs)
}

// readRecords returns every line that splits into exactly want fields.
// Lines of any other width are skipped. On a read error the records parsed
// so far are returned together with the error.
func (b *TextBackend) readRecords(name string, want int) ([][]string, error) {
	f, err := os.Open(filepath.Join(b.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrStorageMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrStorageUnreadable, err)
	}
	defer f.Close()

	var out [][]string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		rec := splitRecord(strings.TrimSuffix(sc.Text(), "\r"), want)
		if len(rec) != want {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("%s: %w: %v", name, ErrStorageUnreadable, err)
	}
	return out, nil
}

// splitRecord parses a single line. Quoted fields as written by
// writeRecords are honoured; a line csv rejects, or splits to another
// width, falls back to a plain comma split. Trailing empty fields are
// dropped either way.
func splitRecord(line string, want int) []string {
	if line == "" {
		return nil
	}
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	if rec, err := r.Read(); err == nil {
		if rec = trimTrailingEmpty(rec); len(rec) == want {
			return rec
		}
	}
	return trimTrailingEmpty(strings.Split(line, ","))
}

func trimTrailingEmpty(rec []string) []string {
	for len(rec) > 0 && rec[len(rec)-1] == "" {
		rec = rec[:len(rec)-1]
	}
	return rec
}

// oneLine keeps every record on a single line.
var oneLine = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// writeRecords replaces the file through a temp file and rename.
func (b *TextBackend) writeRecords(name string, recs [][]string) error {
	for _, rec := range recs {
		for i, field := range rec {
			rec[i] = oneLine.Replace(field)
		}
	}

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", name, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(recs); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(b.dir, name)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
