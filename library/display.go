package library

import "fmt"

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	avail := "No"
	if b.Available {
		avail = "Yes"
	}
	return fmt.Sprintf("Book ID: %s, Title: %s, Author: %s, Available: %s", b.ID, b.Title, b.Author, avail)
}

// PrettyUser formats the welcome line shown after login.
func PrettyUser(u *User) string {
	return fmt.Sprintf("User ID: %s, Name: %s, Role: %s", u.ID, u.Name, u.Role)
}

// PrettyTransaction formats a transaction; open loans read "Not yet".
func PrettyTransaction(t *Transaction) string {
	returned := t.DateReturned
	if t.Open() {
		returned = "Not yet"
	}
	return fmt.Sprintf("Transaction ID: %s, User: %s, Book: %s, Borrowed: %s, Returned: %s",
		t.ID, t.UserID, t.BookID, t.DateBorrowed, returned)
}
