package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-verify-nosql/internal/domain"
)

// Generate returns a numeric code of exactly digits characters drawn from
// crypto/rand over [10^(digits-1), 10^digits-1]. The first digit is never zero.
func Generate(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d: %w", digits, domain.ErrInvalidArgument)
	}
	ten := big.NewInt(10)
	lo := new(big.Int).Exp(ten, big.NewInt(int64(digits-1)), nil)
	hi := new(big.Int).Exp(ten, big.NewInt(int64(digits)), nil)
	span := new(big.Int).Sub(hi, lo)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return n.Add(n, lo).String(), nil
}
