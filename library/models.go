package library

// ReturnedSentinel marks a transaction whose book has not been returned yet.
const ReturnedSentinel = "null"

// DateLayout is the format of borrow and return dates.
const DateLayout = "2006-01-02"

// Role is the role text stored with a user. Values are compared exactly and
// kept verbatim, so a role this program does not know survives a save.
type Role string

const (
	// RoleUser is an ordinary borrower.
	RoleUser Role = "user"
	// RoleAdmin may also view the transaction log.
	RoleAdmin Role = "admin"
)

// Known reports whether r is one of the roles above.
func (r Role) Known() bool { return r == RoleUser || r == RoleAdmin }

// Capability names an action gated by role.
type Capability int

const (
	CapViewTransactions Capability = iota
)

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	switch c {
	case CapViewTransactions:
		return r == RoleAdmin
	}
	return false
}

// User is a library account. Name doubles as the login username.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"-"` // never exported
	Role   Role   `json:"role"`
}

// Book represents metadata and current availability of a book in the library.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available bool   `json:"available"`
}

// Transaction records one borrow and, once closed, its return.
type Transaction struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	BookID       string `json:"book_id"`
	DateBorrowed string `json:"date_borrowed"`
	DateReturned string `json:"date_returned"`
}

// Open reports whether the book is still out.
func (t *Transaction) Open() bool { return t.DateReturned == ReturnedSentinel }

// Session is the identity bound by a successful login.
type Session struct {
	User *User
}

// Can reports whether the logged in user holds the capability.
func (s *Session) Can(c Capability) bool {
	return s != nil && s.User != nil && s.User.Role.Can(c)
}

// DefaultUsers is the data written when no users file exists.
func DefaultUsers() []*User {
	return []*User{
		{ID: "U001", Name: "John Doe", Secret: "pass123", Role: RoleUser},
		{ID: "U002", Name: "Jane Smith", Secret: "abc123", Role: RoleUser},
		{ID: "A001", Name: "Admin", Secret: "admin123", Role: RoleAdmin},
	}
}

// DefaultBooks is the catalog written when no books file exists.
func DefaultBooks() []*Book {
	return []*Book{
		{ID: "B001", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Available: true},
		{ID: "B002", Title: "To Kill a Mockingbird", Author: "Harper Lee", Available: true},
		{ID: "B003", Title: "1984", Author: "George Orwell", Available: true},
	}
}
