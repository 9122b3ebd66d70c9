package library

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	NoBooksMessage = "No books available."
	NoLoansMessage = "No books have been borrowed."
)

// Catalog holds the available shelf and the titles each user has borrowed.
// Titles are the lookup key; entry ids keep duplicates apart.
type Catalog struct {
	accounts  Accounts
	available []Entry
	borrowed  map[string][]string
	borrowers []string
}

// NewCatalog returns an empty catalog that authorizes borrowers through
// accounts.
func NewCatalog(accounts Accounts) *Catalog {
	return &Catalog{accounts: accounts, borrowed: make(map[string][]string)}
}

// RestoreCatalog rebuilds a catalog from a persisted snapshot. Loans are
// replayed in order.
func RestoreCatalog(accounts Accounts, entries []Entry, loans []Loan) *Catalog {
	c := NewCatalog(accounts)
	c.available = slices.Clone(entries)
	for _, l := range loans {
		c.recordLoan(l.Username, l.Title)
	}
	return c
}

// AddBook puts b at the end of the shelf.
func (c *Catalog) AddBook(b Book) EntryID {
	id := uuid.New()
	c.available = append(c.available, Entry{ID: id, Book: b})
	return id
}

// ListBooks returns the available books in shelf order.
func (c *Catalog) ListBooks() []Book {
	out := make([]Book, 0, len(c.available))
	for _, e := range c.available {
		out = append(out, e.Book)
	}
	return out
}

// ListBooksText renders one book per line, or NoBooksMessage.
func (c *Catalog) ListBooksText() string {
	if len(c.available) == 0 {
		return NoBooksMessage
	}
	lines := make([]string, 0, len(c.available))
	for _, e := range c.available {
		lines = append(lines, e.Book.String())
	}
	return strings.Join(lines, "\n")
}

// ListBorrowed returns a copy of username -> borrowed titles.
func (c *Catalog) ListBorrowed() map[string][]string {
	out := make(map[string][]string, len(c.borrowed))
	for name, titles := range c.borrowed {
		out[name] = slices.Clone(titles)
	}
	return out
}

// ListBorrowedText renders "user: title, title" lines in first-borrow order.
func (c *Catalog) ListBorrowedText() string {
	if len(c.borrowers) == 0 {
		return NoLoansMessage
	}
	lines := make([]string, 0, len(c.borrowers))
	for _, name := range c.borrowers {
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(c.borrowed[name], ", ")))
	}
	return strings.Join(lines, "\n")
}

// Entries returns the available shelf including entry ids.
func (c *Catalog) Entries() []Entry { return slices.Clone(c.available) }

// Loans flattens the borrowed mapping in a replayable order.
func (c *Catalog) Loans() []Loan {
	var out []Loan
	for _, name := range c.borrowers {
		for _, title := range c.borrowed[name] {
			out = append(out, Loan{Username: name, Title: title})
		}
	}
	return out
}

// BorrowBook lends the first available copy of title to username for one
// credit. Nothing changes on failure.
func (c *Catalog) BorrowBook(username, title string) error {
	idx := slices.IndexFunc(c.available, func(e Entry) bool { return e.Book.Title == title })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrBookNotAvailable, title)
	}

	user, err := c.accounts.Authorize(username)
	if err != nil {
		return err
	}
	if !user.Spend(1) {
		return fmt.Errorf("%w: %s has %d", ErrInsufficientCredit, username, user.Credits)
	}
	if err := c.accounts.Commit(user); err != nil {
		return fmt.Errorf("commit credit: %w", err)
	}

	c.recordLoan(username, title)
	c.available = slices.Delete(c.available, idx, idx+1)
	return nil
}

// ReturnBook moves title from the user's loans back to the shelf. The
// returned copy carries placeholder author and year.
func (c *Catalog) ReturnBook(username, title string) error {
	titles := c.borrowed[username]
	idx := slices.Index(titles, title)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotBorrowed, title)
	}

	titles = slices.Delete(titles, idx, idx+1)
	if len(titles) == 0 {
		delete(c.borrowed, username)
		c.borrowers = slices.DeleteFunc(c.borrowers, func(n string) bool { return n == username })
	} else {
		c.borrowed[username] = titles
	}

	c.AddBook(Book{Title: title, Author: UnknownAuthor, Year: UnknownYear})
	return nil
}

func (c *Catalog) recordLoan(username, title string) {
	if _, ok := c.borrowed[username]; !ok {
		c.borrowers = append(c.borrowers, username)
	}
	c.borrowed[username] = append(c.borrowed[username], title)
}
