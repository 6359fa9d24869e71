package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const defaultCodeDigits = 6

// CodeIssuer draws uniform numeric codes from crypto/rand. Leading zeros are
// kept, so "004211" is a valid code.
type CodeIssuer struct {
	digits int
	max    *big.Int
}

func NewCodeIssuer(digits int) *CodeIssuer {
	if digits <= 0 || digits > 18 {
		digits = defaultCodeDigits
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	return &CodeIssuer{digits: digits, max: max}
}

func (c *CodeIssuer) Issue() (string, error) {
	n, err := rand.Int(rand.Reader, c.max)
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return fmt.Sprintf("%0*d", c.digits, n.Int64()), nil
}
