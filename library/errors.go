package library

import "errors"

var (
	ErrDuplicateUser      = errors.New("username already exists")
	ErrInvalidUser        = errors.New("invalid user")
	ErrDecryption         = errors.New("decryption failed")
	ErrMalformedStore     = errors.New("malformed user store")
	ErrBookNotAvailable   = errors.New("book is not available")
	ErrUserNotFound       = errors.New("user not found")
	ErrInsufficientCredit = errors.New("insufficient credit to borrow the book")
	ErrNotBorrowed        = errors.New("book was not borrowed or does not exist")
	ErrForbidden          = errors.New("operation requires the admin role")
)
