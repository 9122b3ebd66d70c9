package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ManagerOptions wires a LibraryManager.
type ManagerOptions struct {
	UserFile  string
	CatalogDB string
	Cipher    *Cipher
	// Legacy selects LegacyAccounts for borrowing.
	Legacy bool
	Logger zerolog.Logger
}

// LibraryManager is a thin façade over the user store, catalog and database,
// keeping CLI code simple.
type LibraryManager struct {
	userFile string
	cipher   *Cipher
	users    *UserStore
	catalog  *Catalog
	db       *Database
	log      zerolog.Logger
}

// NewLibraryManager loads the user file and the catalog snapshot.
func NewLibraryManager(ctx context.Context, opts ManagerOptions) (*LibraryManager, error) {
	if opts.Cipher == nil {
		opts.Cipher = DefaultCipher()
	}
	users, err := LoadUserStore(opts.UserFile, opts.Cipher)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var accounts Accounts = SessionAccounts{Store: users, Path: opts.UserFile, Cipher: opts.Cipher}
	if opts.Legacy {
		accounts = LegacyAccounts{Path: opts.UserFile, Cipher: opts.Cipher}
	}

	db, err := NewDatabase(opts.CatalogDB)
	if err != nil {
		return nil, err
	}
	catalog, err := db.LoadCatalog(ctx, accounts)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts.Logger.Debug().
		Int("users", users.Len()).
		Int("books", len(catalog.Entries())).
		Bool("legacy_borrow", opts.Legacy).
		Msg("library loaded")

	return &LibraryManager{
		userFile: opts.UserFile,
		cipher:   opts.Cipher,
		users:    users,
		catalog:  catalog,
		db:       db,
		log:      opts.Logger,
	}, nil
}

// Close persists the catalog and closes the database.
func (lm *LibraryManager) Close(ctx context.Context) error {
	return errors.Join(lm.SaveCatalog(ctx), lm.db.Close())
}

// SaveCatalog writes the catalog snapshot.
func (lm *LibraryManager) SaveCatalog(ctx context.Context) error {
	if err := lm.db.SaveCatalog(ctx, lm.catalog); err != nil {
		lm.log.Error().Err(err).Msg("save catalog")
		return err
	}
	return nil
}

// persistCatalog snapshots the catalog after a committed change. A failure is
// logged only; the in-memory state is authoritative and Close saves again.
func (lm *LibraryManager) persistCatalog() {
	_ = lm.SaveCatalog(context.Background())
}

// Catalog exposes the in-memory catalog.
func (lm *LibraryManager) Catalog() *Catalog { return lm.catalog }

// ------------------ User helpers ------------------

// Register adds a user and rewrites the user file.
func (lm *LibraryManager) Register(username, password string, role Role) error {
	if err := lm.users.Register(username, password, role); err != nil {
		lm.log.Warn().Err(err).Str("username", username).Msg("register rejected")
		return err
	}
	if err := lm.saveUsers(); err != nil {
		return err
	}
	lm.log.Info().Str("username", username).Str("role", string(role)).Msg("user registered")
	return nil
}

// Login returns the matching user or nil.
func (lm *LibraryManager) Login(username, password string) *User {
	u := lm.users.Login(username, password)
	if u == nil {
		lm.log.Warn().Str("username", username).Msg("login failed")
		return nil
	}
	lm.log.Info().Str("username", username).Msg("login")
	return u
}

// ListUsers is restricted to admins.
func (lm *LibraryManager) ListUsers(actor *User) ([]UserSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return lm.users.List(), nil
}

// Credits reports the current balance as held by the user store.
func (lm *LibraryManager) Credits(username string) (int, error) {
	u, ok := lm.users.Get(username)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u.Credits, nil
}

func (lm *LibraryManager) saveUsers() error {
	if err := lm.users.Save(lm.userFile, lm.cipher); err != nil {
		lm.log.Error().Err(err).Str("path", lm.userFile).Msg("save users")
		return err
	}
	return nil
}

// ------------------ Book helpers ------------------

// AddBook shelves a book on behalf of an admin.
func (lm *LibraryManager) AddBook(actor *User, b Book) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	id := lm.catalog.AddBook(b)
	lm.log.Info().Str("entry", id.String()).Str("title", b.Title).Msg("book added")
	lm.persistCatalog()
	return nil
}

// ContributeBook shelves a book donated by a user, who earns one credit.
func (lm *LibraryManager) ContributeBook(username string, b Book) error {
	live, ok := lm.users.Get(username)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	u := *live
	u.Earn(1)
	accounts := SessionAccounts{Store: lm.users, Path: lm.userFile, Cipher: lm.cipher}
	if err := accounts.Commit(&u); err != nil {
		lm.log.Error().Err(err).Str("path", lm.userFile).Msg("save users")
		return err
	}
	id := lm.catalog.AddBook(b)
	lm.log.Info().Str("entry", id.String()).Str("title", b.Title).Str("username", username).Int("credits", u.Credits).Msg("book contributed")
	lm.persistCatalog()
	return nil
}

func (lm *LibraryManager) ListBooks() string    { return lm.catalog.ListBooksText() }
func (lm *LibraryManager) ListBorrowed() string { return lm.catalog.ListBorrowedText() }

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowBook(username, title string) error {
	if err := lm.catalog.BorrowBook(username, title); err != nil {
		lm.log.Warn().Err(err).Str("username", username).Str("title", title).Msg("borrow rejected")
		return err
	}
	lm.log.Info().Str("username", username).Str("title", title).Msg("book borrowed")
	lm.persistCatalog()
	return nil
}

func (lm *LibraryManager) ReturnBook(username, title string) error {
	if err := lm.catalog.ReturnBook(username, title); err != nil {
		lm.log.Warn().Err(err).Str("username", username).Str("title", title).Msg("return rejected")
		return err
	}
	lm.log.Info().Str("username", username).Str("title", title).Msg("book returned")
	lm.persistCatalog()
	return nil
}
