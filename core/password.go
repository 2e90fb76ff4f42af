package core

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the work factor the catalog has always used for
// stored credentials. Raising it only affects newly hashed passwords.
const bcryptCost = 10

// HashPassword produces a randomly salted bcrypt digest of plain.
// The same plaintext hashes to a different digest on every call.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
// A malformed hash yields false, identical to a wrong password, so the
// caller cannot leak which of the two happened.
func CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
