// Package password wraps bcrypt hashing and the structural check that
// separates hashed secrets from legacy plaintext ones.
package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service hashes and verifies passwords at a fixed work factor.
type Service struct {
	cost int
}

func New(cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{cost: cost}
}

// Hash returns a bcrypt hash of pw. The output always satisfies
// LooksHashed.
func (s *Service) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether pw matches the bcrypt secret. It fails closed:
// any bcrypt error, including a malformed secret, yields false.
func (s *Service) Verify(pw, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secret), []byte(pw)) == nil
}

// LooksHashed reports whether secret is structurally a bcrypt hash.
// This is a migration trigger, not a security boundary: it only decides
// whether Login takes the verify path or the legacy-equality path.
func LooksHashed(secret string) bool {
	if len(secret) != 60 {
		return false
	}
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(secret, p) {
			return true
		}
	}
	return false
}
