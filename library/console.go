package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Menu choices.
const (
	ChoiceExit             = 0
	ChoiceListBooks        = 1
	ChoiceBorrow           = 2
	ChoiceReturn           = 3
	ChoiceListTransactions = 4
)

// SecretReader reads a secret after printing prompt.
type SecretReader func(prompt string) (string, error)

// Console runs the login prompt and the numbered menu over a line reader.
type Console struct {
	mgr        *LibraryManager
	sc         *bufio.Scanner
	out        io.Writer
	readSecret SecretReader
}

// NewConsole reads commands from in and writes to out. When readSecret is
// nil secrets are read as plain lines from in.
func NewConsole(mgr *LibraryManager, in io.Reader, out io.Writer, readSecret SecretReader) *Console {
	c := &Console{mgr: mgr, sc: bufio.NewScanner(in), out: out, readSecret: readSecret}
	if c.readSecret == nil {
		c.readSecret = func(prompt string) (string, error) { return c.prompt(prompt) }
	}
	return c
}

func (c *Console) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }

// prompt prints p and returns the next input line without its newline.
func (c *Console) prompt(p string) (string, error) {
	c.printf("%s", p)
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.sc.Text(), nil
}

// Credentials implements CredentialSource.
func (c *Console) Credentials(int) (string, string, error) {
	name, err := c.prompt("Username: ")
	if err != nil {
		return "", "", err
	}
	secret, err := c.readSecret("Password: ")
	if err != nil {
		return "", "", err
	}
	return name, secret, nil
}

// Rejected implements RejectionNotifier.
func (c *Console) Rejected(left int) {
	c.printf("Invalid login. Attempts left: %d\n", left)
}

// Login authenticates the user and greets them.
func (c *Console) Login() (*Session, error) {
	s, err := c.mgr.Authenticate(c)
	if err != nil {
		return nil, err
	}
	c.printf("\nWelcome, %s!\n", s.User.Name)
	c.printf("%s\n", PrettyUser(s.User))
	return s, nil
}

// Run shows the menu until the user chooses exit or input ends, then saves
// every collection. Only the final save can make Run fail.
func (c *Console) Run(s *Session) error {
	for {
		c.printMenu(s)
		line, err := c.prompt("Your choice: ")
		if err != nil {
			c.printf("\n")
			return c.exit()
		}

		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			c.printf("Invalid choice: %q\n", line)
			continue
		}

		switch {
		case choice == ChoiceListBooks:
			c.handleListBooks()
		case choice == ChoiceBorrow:
			c.handleBorrow(s)
		case choice == ChoiceReturn:
			c.handleReturn(s)
		case choice == ChoiceListTransactions && s.Can(CapViewTransactions):
			c.handleListTransactions()
		case choice == ChoiceExit:
			return c.exit()
		}
	}
}

func (c *Console) printMenu(s *Session) {
	c.printf("\n=== LIBRARY MENU ===\n")
	c.printf("%d. View Books\n", ChoiceListBooks)
	c.printf("%d. Borrow Book\n", ChoiceBorrow)
	c.printf("%d. Return Book\n", ChoiceReturn)
	if s.Can(CapViewTransactions) {
		c.printf("%d. View Transactions\n", ChoiceListTransactions)
	}
	c.printf("%d. Exit\n", ChoiceExit)
}

func (c *Console) exit() error {
	if err := c.mgr.Save(); err != nil {
		c.printf("Error saving data: %v\n", err)
		return err
	}
	return nil
}

func (c *Console) handleListBooks() {
	c.printf("\n=== ALL BOOKS ===\n")
	books := c.mgr.Books()
	if len(books) == 0 {
		c.printf("No books in library.\n")
		return
	}
	for _, b := range books {
		c.printf("%s\n", PrettyBook(b))
	}
}

func (c *Console) handleListTransactions() {
	c.printf("\n=== ALL TRANSACTIONS ===\n")
	txs := c.mgr.Transactions()
	if len(txs) == 0 {
		c.printf("No transactions recorded.\n")
		return
	}
	for _, t := range txs {
		c.printf("%s\n", PrettyTransaction(t))
	}
}

func (c *Console) handleBorrow(s *Session) {
	id, err := c.prompt("Enter Book ID: ")
	if err != nil {
		return
	}
	t, err := c.mgr.Borrow(strings.TrimSpace(id), s)
	if t == nil {
		c.printf("Error: %v\n", err)
		return
	}
	c.printf("Book borrowed! (transaction %s)\n", t.ID)
	if err != nil {
		c.printf("Warning: %v\n", err)
	}
}

func (c *Console) handleReturn(s *Session) {
	id, err := c.prompt("Enter Book ID: ")
	if err != nil {
		return
	}
	_, err = c.mgr.Return(strings.TrimSpace(id), s)
	if err != nil && !errors.Is(err, ErrPersist) {
		c.printf("Error: %v\n", err)
		return
	}
	c.printf("Book returned!\n")
	if err != nil {
		c.printf("Warning: %v\n", err)
	}
}
