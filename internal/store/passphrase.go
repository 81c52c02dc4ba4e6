package store

import (
	"fmt"
	"unicode"
)

// minPassphraseLength is the minimum number of characters of a passphrase
// that seals new secrets.
const minPassphraseLength = 12

// ErrWeakPassphrase is returned when a new secret would be sealed under a
// passphrase that fails the strength policy. Existing secrets still open.
var ErrWeakPassphrase = fmt.Errorf(
	"passphrase is too weak (must be at least %d characters and include upper, lower, "+
		"number, and symbol)",
	minPassphraseLength,
)

// CheckPassphrase applies the strength policy used before sealing.
func CheckPassphrase(passphrase string) error {
	if passphrase == "" {
		return ErrPassphraseRequired
	}
	var upper, lower, digit, symbol bool
	n := 0
	for _, r := range passphrase {
		n++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			symbol = true
		}
	}
	if n < minPassphraseLength || !(upper && lower && digit && symbol) {
		return ErrWeakPassphrase
	}
	return nil
}
