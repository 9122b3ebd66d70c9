package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New(validator.WithRequiredStructEnabled())
)

type registration struct {
	Username string `validate:"required,max=64"`
	Role     Role   `validate:"oneof=user admin"`
}

// UserStore owns every registered account, keyed by username and kept in
// registration order.
type UserStore struct {
	users map[string]*User
	order []string
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*User)}
}

// Register adds a user with zero credits. An empty role means RoleUser.
func (s *UserStore) Register(username, password string, role Role) error {
	if role == "" {
		role = RoleUser
	}
	if err := validate.Struct(registration{Username: username, Role: role}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	if _, ok := s.users[username]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}
	s.insert(&User{Username: username, Password: password, Role: role})
	return nil
}

func (s *UserStore) insert(u *User) {
	s.users[u.Username] = u
	s.order = append(s.order, u.Username)
}

// Login returns the user only when the password matches. Unknown users and
// wrong passwords both yield nil.
func (s *UserStore) Login(username, password string) *User {
	u, ok := s.users[username]
	if !ok || !u.Authenticate(password) {
		return nil
	}
	return u
}

// Get looks a user up without checking credentials.
func (s *UserStore) Get(username string) (*User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Put replaces the record of an already registered user.
func (s *UserStore) Put(u *User) error {
	if _, ok := s.users[u.Username]; !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, u.Username)
	}
	clone := *u
	s.users[u.Username] = &clone
	return nil
}

func (s *UserStore) Len() int { return len(s.order) }

// List returns username and credits for every user in registration order.
func (s *UserStore) List() []UserSummary {
	out := make([]UserSummary, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, UserSummary{Username: name, Credits: s.users[name].Credits})
	}
	return out
}

// Serialize encodes the store as a JSON array of user records.
func (s *UserStore) Serialize() (string, error) {
	records := make([]*User, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, s.users[name])
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("serialize users: %w", err)
	}
	return string(b), nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(text string) (*UserStore, error) {
	var records []*User
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	s := NewUserStore()
	for i, u := range records {
		switch {
		case u == nil || u.Username == "":
			return nil, fmt.Errorf("%w: record %d has no username", ErrMalformedStore, i)
		case u.Credits < 0:
			return nil, fmt.Errorf("%w: user %s has negative credits", ErrMalformedStore, u.Username)
		case u.Role != RoleUser && u.Role != RoleAdmin:
			return nil, fmt.Errorf("%w: user %s has unknown role %q", ErrMalformedStore, u.Username, u.Role)
		}
		if _, dup := s.users[u.Username]; dup {
			return nil, fmt.Errorf("%w: duplicate username %s", ErrMalformedStore, u.Username)
		}
		s.insert(u)
	}
	return s, nil
}

// Save serializes, encrypts and overwrites path.
func (s *UserStore) Save(path string, c *Cipher) error {
	text, err := s.Serialize()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create user file dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(c.Encrypt(text)), 0o600); err != nil {
		return fmt.Errorf("write user file: %w", err)
	}
	return nil
}

// LoadUserStore reads the encrypted store at path. A missing file is an
// empty store.
func LoadUserStore(path string, c *Cipher) (*UserStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewUserStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}
	text, err := c.Decrypt(string(data))
	if err != nil {
		return nil, err
	}
	return Deserialize(text)
}
