package library

import (
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the JSON export of a store. Secrets are never included.
type Snapshot struct {
	ExportedAt   time.Time      `json:"exported_at"`
	Users        []*User        `json:"users"`
	Books        []*Book        `json:"books"`
	Transactions []*Transaction `json:"transactions"`
}

// Snapshot captures the current collections.
func (lm *LibraryManager) Snapshot() Snapshot {
	return Snapshot{
		ExportedAt:   lm.now().UTC(),
		Users:        lm.store.Users,
		Books:        lm.store.Books,
		Transactions: lm.store.Transactions,
	}
}

// WriteJSON writes the snapshot as indented JSON.
func (lm *LibraryManager) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lm.Snapshot())
}
