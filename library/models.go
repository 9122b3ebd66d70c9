package library

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the permission level of a registered user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a single library account. Credits are spent to borrow books and
// earned by contributing them.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Credits  int    `json:"credits"`
	Role     Role   `json:"role"`
}

// Authenticate reports whether password matches the stored credential exactly.
func (u *User) Authenticate(password string) bool { return u.Password == password }

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Earn adds amount to the balance unconditionally.
func (u *User) Earn(amount int) { u.Credits += amount }

// Spend deducts amount if the balance covers it. The balance is left
// untouched and false is returned otherwise.
func (u *User) Spend(amount int) bool {
	if u.Credits < amount {
		return false
	}
	u.Credits -= amount
	return true
}

// UserSummary is the listing view of a user.
type UserSummary struct {
	Username string
	Credits  int
}

// Book is a title/author/year record. Year is free text.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   string `json:"year"`
}

// Placeholder metadata used when a returned title is put back on the shelf.
const (
	UnknownAuthor = "unknown author"
	UnknownYear   = "unknown year"
)

func (b Book) String() string {
	return fmt.Sprintf("%s by %s (%s)", b.Title, b.Author, b.Year)
}

// EntryID identifies one physical entry in the catalog, so that two books
// sharing a title remain distinguishable.
type EntryID = uuid.UUID

// Entry is a book sitting on the available shelf.
type Entry struct {
	ID   EntryID
	Book Book
}

// Loan records a title borrowed by a user.
type Loan struct {
	Username string `db:"username"`
	Title    string `db:"title"`
}
