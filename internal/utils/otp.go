package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	loginCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// LoginCodeLength is the number of characters in a mobile login code.
	LoginCodeLength = 6
	mobileDigits    = 10
)

// NewLoginCode returns a random alphanumeric one-time code.  Look-alike
// characters (0/O, 1/I) are left out of the alphabet.
func NewLoginCode() (string, error) {
	max := big.NewInt(int64(len(loginCodeAlphabet)))
	var b strings.Builder
	b.Grow(LoginCodeLength)
	for i := 0; i < LoginCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(loginCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// DigitsOnly strips everything but ASCII digits from a phone number.
func DigitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeMobile returns the last 10 digits of a phone number so that
// "+91 98765 43210", "0919876543210" and "9876543210" all match.  It
// returns "" when fewer than 10 digits are present.
func NormalizeMobile(raw string) string {
	d := DigitsOnly(raw)
	if len(d) < mobileDigits {
		return ""
	}
	return d[len(d)-mobileDigits:]
}

// MaskMobile keeps only the last four digits, for logs.
func MaskMobile(raw string) string {
	d := DigitsOnly(raw)
	if len(d) <= 4 {
		return strings.Repeat("*", len(d))
	}
	return strings.Repeat("*", len(d)-4) + d[len(d)-4:]
}
