package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"library-lending/library"
)

// prompter reads answers line by line. Passwords are masked when the input
// is a terminal.
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
	fd  int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &prompter{sc: bufio.NewScanner(in), out: out, fd: fd}
}

func (p *prompter) ask(prompt string) (string, bool) {
	fmt.Fprint(p.out, prompt)
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

func (p *prompter) password(prompt string) (string, error) {
	if p.fd < 0 {
		s, ok := p.ask(prompt)
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return s, nil
	}
	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out) // Add newline after password input
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *prompter) choice(prompt string) (int, bool) {
	s, ok := p.ask(prompt)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, true
	}
	return n, true
}

// shell is the menu-driven front end: pre-login, then the user or admin menu.
type shell struct {
	mgr *library.LibraryManager
	p   *prompter
	out io.Writer
}

func newShell(mgr *library.LibraryManager, p *prompter) *shell {
	return &shell{mgr: mgr, p: p, out: p.out}
}

func (s *shell) say(format string, args ...any) { fmt.Fprintf(s.out, format+"\n", args...) }

func (s *shell) run() {
	for {
		s.say("\nMain menu")
		s.say("1. Register")
		s.say("2. Login")
		s.say("3. Exit")
		n, ok := s.p.choice("Choice: ")
		if !ok {
			return
		}
		switch n {
		case 1:
			s.handleRegister()
		case 2:
			if !s.handleLogin() {
				return
			}
		case 3:
			s.say("Goodbye!")
			return
		default:
			s.say("Invalid choice.")
		}
	}
}

func (s *shell) handleRegister() {
	username, ok := s.p.ask("Username: ")
	if !ok {
		return
	}
	password, err := s.p.password("Password: ")
	if err != nil {
		return
	}
	role, ok := s.p.ask("Role (user/admin): ")
	if !ok {
		return
	}
	if err := s.mgr.Register(username, password, library.Role(strings.ToLower(role))); err != nil {
		s.sayErr(err)
		return
	}
	s.say("Registration successful! You can now log in.")
}

// handleLogin returns false when input ran out inside a menu.
func (s *shell) handleLogin() bool {
	username, ok := s.p.ask("Username: ")
	if !ok {
		return false
	}
	password, err := s.p.password("Password: ")
	if err != nil {
		return false
	}
	u := s.mgr.Login(username, password)
	if u == nil {
		s.say("Login failed. Check your credentials.")
		return true
	}
	if u.IsAdmin() {
		return s.adminMenu(u)
	}
	return s.userMenu(u)
}

func (s *shell) userMenu(u *library.User) bool {
	for {
		s.say("\nUser menu (%s)", u.Username)
		s.say("1. List books")
		s.say("2. List borrowed books")
		s.say("3. Borrow a book")
		s.say("4. Return a book")
		s.say("5. Contribute a book")
		s.say("6. Show credit balance")
		s.say("7. Logout")
		n, ok := s.p.choice("Choice: ")
		if !ok {
			return false
		}
		switch n {
		case 1:
			s.say("%s", s.mgr.ListBooks())
		case 2:
			s.say("%s", s.mgr.ListBorrowed())
		case 3:
			title, ok := s.p.ask("Title to borrow: ")
			if !ok {
				return false
			}
			if err := s.mgr.BorrowBook(u.Username, title); err != nil {
				s.sayErr(err)
				continue
			}
			s.say("Book borrowed successfully!")
		case 4:
			title, ok := s.p.ask("Title to return: ")
			if !ok {
				return false
			}
			if err := s.mgr.ReturnBook(u.Username, title); err != nil {
				s.sayErr(err)
				continue
			}
			s.say("Book returned successfully!")
		case 5:
			b, ok := s.askBook()
			if !ok {
				return false
			}
			if err := s.mgr.ContributeBook(u.Username, b); err != nil {
				s.sayErr(err)
				continue
			}
			s.say("Book added and you earned 1 credit!")
		case 6:
			credits, err := s.mgr.Credits(u.Username)
			if err != nil {
				s.sayErr(err)
				continue
			}
			s.say("Credit balance: %d", credits)
		case 7:
			return true
		default:
			s.say("Invalid choice.")
		}
	}
}

func (s *shell) adminMenu(u *library.User) bool {
	for {
		s.say("\nAdmin menu (%s)", u.Username)
		s.say("1. List users")
		s.say("2. List books")
		s.say("3. List borrowed books")
		s.say("4. Add a book")
		s.say("5. Logout")
		n, ok := s.p.choice("Choice: ")
		if !ok {
			return false
		}
		switch n {
		case 1:
			users, err := s.mgr.ListUsers(u)
			if err != nil {
				s.sayErr(err)
				continue
			}
			s.say("%s", formatUsers(users))
		case 2:
			s.say("%s", s.mgr.ListBooks())
		case 3:
			s.say("%s", s.mgr.ListBorrowed())
		case 4:
			b, ok := s.askBook()
			if !ok {
				return false
			}
			if err := s.mgr.AddBook(u, b); err != nil {
				s.sayErr(err)
				continue
			}
			s.say("Book added successfully!")
		case 5:
			return true
		default:
			s.say("Invalid choice.")
		}
	}
}

func (s *shell) askBook() (library.Book, bool) {
	var b library.Book
	var ok bool
	if b.Title, ok = s.p.ask("Title: "); !ok {
		return b, false
	}
	if b.Author, ok = s.p.ask("Author: "); !ok {
		return b, false
	}
	if b.Year, ok = s.p.ask("Year: "); !ok {
		return b, false
	}
	return b, true
}

func (s *shell) sayErr(err error) {
	switch {
	case errors.Is(err, library.ErrDuplicateUser):
		s.say("Username already taken. Choose another one.")
	case errors.Is(err, library.ErrBookNotAvailable):
		s.say("The book is not available.")
	case errors.Is(err, library.ErrUserNotFound):
		s.say("User not found.")
	case errors.Is(err, library.ErrInsufficientCredit):
		s.say("Not enough credit to borrow the book.")
	case errors.Is(err, library.ErrNotBorrowed):
		s.say("The book was not borrowed or does not exist.")
	default:
		s.say("Error: %v", err)
	}
}
