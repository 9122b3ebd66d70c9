package library

import "fmt"

// Accounts resolves the borrower during BorrowBook and records the debit
// once the catalog accepts the loan.
type Accounts interface {
	Authorize(username string) (*User, error)
	Commit(user *User) error
}

// LegacyAccounts re-reads the user file and logs the user in with an empty
// password, as releases before session mode did. Only users registered with
// an empty password can borrow, and the debit is never written back.
type LegacyAccounts struct {
	Path   string
	Cipher *Cipher
}

func (a LegacyAccounts) Authorize(username string) (*User, error) {
	store, err := LoadUserStore(a.Path, a.Cipher)
	if err != nil {
		return nil, err
	}
	u := store.Login(username, "")
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u, nil
}

// Commit discards the change; the reloaded user is transient.
func (LegacyAccounts) Commit(*User) error { return nil }

// SessionAccounts resolves borrowers from the live store and persists every
// debit.
type SessionAccounts struct {
	Store  *UserStore
	Path   string
	Cipher *Cipher
}

func (a SessionAccounts) Authorize(username string) (*User, error) {
	u, ok := a.Store.Get(username)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	clone := *u
	return &clone, nil
}

// Commit makes u the live record and saves the store. If the save fails the
// previous record is restored, so memory never runs ahead of the file.
func (a SessionAccounts) Commit(u *User) error {
	prev, ok := a.Store.Get(u.Username)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, u.Username)
	}
	old := *prev
	if err := a.Store.Put(u); err != nil {
		return err
	}
	if a.Path == "" {
		return nil
	}
	if err := a.Store.Save(a.Path, a.Cipher); err != nil {
		a.Store.users[old.Username] = &old
		return err
	}
	return nil
}
