package usecase

import (
	"io"
)

// generateRedemptionCode draws a random 6-digit numeric code from rng.
// Callers pass crypto/rand.Reader in production and a deterministic reader
// in tests. Uniqueness among outstanding codes is the caller's problem.
func generateRedemptionCode(rng io.Reader) (string, error) {
	const digits = "0123456789"
	const codeLength = 6

	buf := make([]byte, codeLength)
	if _, err := io.ReadFull(rng, buf); err != nil {
		return "", err
	}
	for i := 0; i < codeLength; i++ {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}
