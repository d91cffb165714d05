package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrHashing wraps unexpected failures of the underlying hash algorithm.
var ErrHashing = errors.New("password hashing failed")

// DefaultBcryptCost is used when the configured cost is out of range.
const DefaultBcryptCost = 10

// Hasher hashes and verifies passwords with bcrypt.  bcrypt is deliberately
// slow, so at most `workers` hash operations run at the same time; callers
// beyond that wait for a slot or for their context to end.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher returns a Hasher.  workers <= 0 means GOMAXPROCS.
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// Cost reports the bcrypt cost new hashes are created with.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash.  A mismatch or a malformed
// hash yields false with a nil error.  Stored values that are not bcrypt
// hashes never match.
func (h *Hasher) Verify(ctx context.Context, plain, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrHashTooShort):
		return false, nil
	}
	var (
		prefixErr  bcrypt.InvalidHashPrefixError
		versionErr bcrypt.HashVersionTooNewError
		costErr    bcrypt.InvalidCostError
	)
	if errors.As(err, &prefixErr) || errors.As(err, &versionErr) || errors.As(err, &costErr) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrHashing, err)
}

// IsHashed reports whether a stored password value is a bcrypt hash.  Only
// the legacy migration command needs to ask.
func IsHashed(stored string) bool {
	if !strings.HasPrefix(stored, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}
