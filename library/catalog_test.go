package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccounts struct {
	users     map[string]*User
	committed []User
}

func newStubAccounts(users ...User) *stubAccounts {
	a := &stubAccounts{users: make(map[string]*User)}
	for _, u := range users {
		a.users[u.Username] = &u
	}
	return a
}

func (a *stubAccounts) Authorize(username string) (*User, error) {
	u, ok := a.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (a *stubAccounts) Commit(u *User) error {
	a.committed = append(a.committed, *u)
	return nil
}

func TestBookString(t *testing.T) {
	assert.Equal(t, "Dune by Herbert (1965)", Book{Title: "Dune", Author: "Herbert", Year: "1965"}.String())
}

func TestAddAndListBooks(t *testing.T) {
	c := NewCatalog(newStubAccounts())
	assert.Equal(t, NoBooksMessage, c.ListBooksText())
	assert.Empty(t, c.ListBooks())

	c.AddBook(Book{Title: "Dune", Author: "Herbert", Year: "1965"})
	c.AddBook(Book{Title: "Emma", Author: "Austen", Year: "1815"})

	assert.Equal(t, "Dune by Herbert (1965)\nEmma by Austen (1815)", c.ListBooksText())
	assert.Equal(t, "Dune", c.ListBooks()[0].Title)
}

func TestAddBookAssignsDistinctIDs(t *testing.T) {
	c := NewCatalog(newStubAccounts())
	a := c.AddBook(Book{Title: "Dune", Author: "Herbert"})
	b := c.AddBook(Book{Title: "Dune", Author: "Someone Else"})
	assert.NotEqual(t, a, b)
}

func TestBorrowSuccess(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 2, Role: RoleUser})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune", Author: "Herbert", Year: "1965"})
	c.AddBook(Book{Title: "Emma", Author: "Austen", Year: "1815"})

	require.NoError(t, c.BorrowBook("alice", "Dune"))

	assert.Equal(t, []Book{{Title: "Emma", Author: "Austen", Year: "1815"}}, c.ListBooks())
	assert.Equal(t, map[string][]string{"alice": {"Dune"}}, c.ListBorrowed())
	assert.Equal(t, "alice: Dune", c.ListBorrowedText())
	require.Len(t, accounts.committed, 1)
	assert.Equal(t, 1, accounts.committed[0].Credits)
}

func TestBorrowFirstOfDuplicateTitles(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 1})
	c := NewCatalog(accounts)
	first := c.AddBook(Book{Title: "Dune", Author: "Herbert"})
	second := c.AddBook(Book{Title: "Dune", Author: "Other"})

	require.NoError(t, c.BorrowBook("alice", "Dune"))
	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, second, entries[0].ID)
	assert.NotEqual(t, first, entries[0].ID)
}

func TestBorrowUnknownTitle(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 5})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune", Author: "Herbert", Year: "1965"})
	before := c.Entries()

	err := c.BorrowBook("alice", "dune")
	assert.ErrorIs(t, err, ErrBookNotAvailable)
	assert.Equal(t, before, c.Entries())
	assert.Empty(t, c.ListBorrowed())
	assert.Equal(t, 5, accounts.users["alice"].Credits)
}

func TestBorrowInsufficientCredit(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 0})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune"})

	assert.ErrorIs(t, c.BorrowBook("alice", "Dune"), ErrInsufficientCredit)
	assert.Len(t, c.ListBooks(), 1)
	assert.Empty(t, c.ListBorrowed())
	assert.Equal(t, 0, accounts.users["alice"].Credits)
	assert.Empty(t, accounts.committed)
}

func TestBorrowUnknownUser(t *testing.T) {
	c := NewCatalog(newStubAccounts())
	c.AddBook(Book{Title: "Dune"})

	assert.ErrorIs(t, c.BorrowBook("ghost", "Dune"), ErrUserNotFound)
	assert.Len(t, c.ListBooks(), 1)
}

func TestReturnLosesMetadata(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 1})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune", Author: "Herbert", Year: "1965"})
	require.NoError(t, c.BorrowBook("alice", "Dune"))

	require.NoError(t, c.ReturnBook("alice", "Dune"))

	assert.Equal(t, []Book{{Title: "Dune", Author: UnknownAuthor, Year: UnknownYear}}, c.ListBooks())
	assert.Equal(t, "Dune by unknown author (unknown year)", c.ListBooksText())
	assert.Empty(t, c.ListBorrowed())
	assert.Equal(t, NoLoansMessage, c.ListBorrowedText())
}

func TestReturnKeepsRemainingLoans(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 3}, User{Username: "bob", Credits: 1})
	c := NewCatalog(accounts)
	for _, title := range []string{"A", "B", "C"} {
		c.AddBook(Book{Title: title})
	}
	require.NoError(t, c.BorrowBook("bob", "C"))
	require.NoError(t, c.BorrowBook("alice", "A"))
	require.NoError(t, c.BorrowBook("alice", "B"))
	assert.Equal(t, "bob: C\nalice: A, B", c.ListBorrowedText())

	require.NoError(t, c.ReturnBook("alice", "A"))
	assert.Equal(t, map[string][]string{"alice": {"B"}, "bob": {"C"}}, c.ListBorrowed())

	require.NoError(t, c.ReturnBook("bob", "C"))
	assert.Equal(t, "alice: B", c.ListBorrowedText())
}

func TestReturnNotBorrowed(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 1}, User{Username: "bob", Credits: 1})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune"})
	require.NoError(t, c.BorrowBook("alice", "Dune"))

	assert.ErrorIs(t, c.ReturnBook("alice", "Emma"), ErrNotBorrowed)
	assert.ErrorIs(t, c.ReturnBook("bob", "Dune"), ErrNotBorrowed)
	assert.Empty(t, c.ListBooks())
}

func TestListBorrowedIsACopy(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 1})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "Dune"})
	require.NoError(t, c.BorrowBook("alice", "Dune"))

	loans := c.ListBorrowed()
	loans["alice"][0] = "changed"
	delete(loans, "alice")
	assert.Equal(t, map[string][]string{"alice": {"Dune"}}, c.ListBorrowed())
}

func TestRestoreCatalog(t *testing.T) {
	accounts := newStubAccounts(User{Username: "alice", Credits: 2})
	c := NewCatalog(accounts)
	c.AddBook(Book{Title: "A"})
	c.AddBook(Book{Title: "B"})
	c.AddBook(Book{Title: "C"})
	require.NoError(t, c.BorrowBook("alice", "B"))

	restored := RestoreCatalog(accounts, c.Entries(), c.Loans())
	assert.Equal(t, c.Entries(), restored.Entries())
	assert.Equal(t, c.ListBorrowedText(), restored.ListBorrowedText())

	require.NoError(t, restored.ReturnBook("alice", "B"))
}

func TestLegacyAccountsEmptyPasswordLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ciph := DefaultCipher()

	store := NewUserStore()
	require.NoError(t, store.Register("alice", "pw", RoleUser))
	require.NoError(t, store.Register("open", "", RoleUser))
	for _, name := range []string{"alice", "open"} {
		u, _ := store.Get(name)
		u.Earn(1)
	}
	require.NoError(t, store.Save(path, ciph))

	c := NewCatalog(LegacyAccounts{Path: path, Cipher: ciph})
	c.AddBook(Book{Title: "Dune"})
	c.AddBook(Book{Title: "Dune"})

	// A user with a real password cannot pass the empty-password login.
	assert.ErrorIs(t, c.BorrowBook("alice", "Dune"), ErrUserNotFound)

	require.NoError(t, c.BorrowBook("open", "Dune"))

	// The debit happened on a reloaded copy and was never written back.
	reloaded, err := LoadUserStore(path, ciph)
	require.NoError(t, err)
	u, _ := reloaded.Get("open")
	assert.Equal(t, 1, u.Credits)

	// So the same user can borrow again on the same single credit.
	require.NoError(t, c.BorrowBook("open", "Dune"))
	assert.Equal(t, map[string][]string{"open": {"Dune", "Dune"}}, c.ListBorrowed())
}

func TestLegacyAccountsMissingFile(t *testing.T) {
	c := NewCatalog(LegacyAccounts{Path: filepath.Join(t.TempDir(), "none.json"), Cipher: DefaultCipher()})
	c.AddBook(Book{Title: "Dune"})
	assert.ErrorIs(t, c.BorrowBook("alice", "Dune"), ErrUserNotFound)
}

func TestSessionAccountsPersistDebit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	ciph := DefaultCipher()

	store := NewUserStore()
	require.NoError(t, store.Register("alice", "pw", RoleUser))
	u, _ := store.Get("alice")
	u.Earn(1)

	c := NewCatalog(SessionAccounts{Store: store, Path: path, Cipher: ciph})
	c.AddBook(Book{Title: "Dune"})
	c.AddBook(Book{Title: "Dune"})

	require.NoError(t, c.BorrowBook("alice", "Dune"))
	assert.ErrorIs(t, c.BorrowBook("alice", "Dune"), ErrInsufficientCredit)

	live, _ := store.Get("alice")
	assert.Equal(t, 0, live.Credits)

	reloaded, err := LoadUserStore(path, ciph)
	require.NoError(t, err)
	persisted, _ := reloaded.Get("alice")
	assert.Equal(t, 0, persisted.Credits)
}

func TestSessionAccountsFailedSaveKeepsCredit(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.Register("alice", "pw", RoleUser))
	u, _ := store.Get("alice")
	u.Earn(1)

	// A directory where the user file should be makes every save fail.
	c := NewCatalog(SessionAccounts{Store: store, Path: t.TempDir(), Cipher: DefaultCipher()})
	c.AddBook(Book{Title: "Dune"})

	require.Error(t, c.BorrowBook("alice", "Dune"))

	live, _ := store.Get("alice")
	assert.Equal(t, 1, live.Credits)
	assert.Equal(t, []Book{{Title: "Dune"}}, c.ListBooks())
	assert.Empty(t, c.Loans())
}
