package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error = %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("hash must not equal the plain password")
	}
	if !VerifyPassword(hash, "hunter2") {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword(hash, "hunter3") {
		t.Fatalf("wrong password accepted")
	}
}
