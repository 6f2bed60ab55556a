package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const pinLength = 4

var (
	ErrInvalidPIN  = errors.New("PIN must be exactly 4 digits")
	ErrPINMismatch = errors.New("PIN confirmation does not match")
	ErrWrongPIN    = errors.New("incorrect PIN")
	ErrNoPIN       = errors.New("no PIN set")
)

func validatePIN(pin string) error {
	if len(pin) != pinLength {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// HashPIN checks the format and confirmation of a new PIN and returns its
// bcrypt hash.
func HashPIN(pin, confirm string) (string, error) {
	if err := validatePIN(pin); err != nil {
		return "", err
	}
	if pin != confirm {
		return "", ErrPINMismatch
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPIN compares pin against a stored hash.
func CheckPIN(hash, pin string) error {
	if hash == "" {
		return ErrNoPIN
	}
	if err := validatePIN(pin); err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrWrongPIN
	}
	return nil
}
