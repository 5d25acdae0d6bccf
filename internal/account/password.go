package account

import "golang.org/x/crypto/bcrypt"

// BcryptHasher implements Hasher with bcrypt. bcrypt's comparison is
// constant-time over the derived key, which satisfies the login timing
// requirement.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a hasher. cost <= 0 selects bcrypt.DefaultCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// Hash returns the bcrypt digest of plain.
func (h BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest.
func (h BcryptHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
