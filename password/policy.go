package password

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrTooShort = errors.New("password too short")
	ErrTooLong  = errors.New("password too long")
	ErrInvalid  = errors.New("password is not valid UTF-8")
)

// Policy bounds acceptable passwords. Lengths count runes; MaxBytes caps the
// input handed to the KDF.
type Policy struct {
	MinLength int
	MaxBytes  int
}

// DefaultPolicy requires 8 characters and at most 256 bytes.
func DefaultPolicy() Policy {
	return Policy{MinLength: 8, MaxBytes: 256}
}

// Check validates password against p.
func (p Policy) Check(password string) error {
	if !utf8.ValidString(password) {
		return ErrInvalid
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		return ErrTooLong
	}
	if utf8.RuneCountInString(password) < p.MinLength {
		return ErrTooShort
	}
	return nil
}
