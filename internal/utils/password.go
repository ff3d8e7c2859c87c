package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash stored for email/password
// accounts. The cost comes from configuration so it can be raised
// without a code change; existing hashes keep the cost they were
// created with.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks a login attempt against the stored hash.
// Accounts created through the OAuth simulators have no hash and never
// reach this.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
