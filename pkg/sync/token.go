package sync

import "github.com/google/uuid"

// TokenSource produces identity tokens for newly created document
// elements. A token is assigned once and never changes for the life of
// the element.
type TokenSource func() string

// UUIDTokens is the default source: random version-4 UUIDs, the same
// shape KiCad itself assigns.
func UUIDTokens() string {
	return uuid.New().String()
}

// SequentialTokens returns a deterministic source for tests: prefix-0001,
// prefix-0002, ...
func SequentialTokens(prefix string) TokenSource {
	n := 0
	return func() string {
		n++
		return prefix + "-" + fourDigits(n)
	}
}

func fourDigits(n int) string {
	digits := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}
