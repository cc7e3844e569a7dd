package random

import (
	"crypto/rand"
)

// Random generates identifiers and can be mocked for testing
type Random interface {
	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// String draws each character uniformly from alphabet. Bytes at or above the
// largest multiple of len(alphabet) are discarded so no character is favoured.
// Alphabets longer than 256 characters are truncated to their first 256.
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || len(alphabet) == 0 {
		return ""
	}
	n := min(len(alphabet), 256)
	limit := 256 - 256%n

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		// crypto/rand.Read never returns an error on supported platforms
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
