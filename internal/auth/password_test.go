package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "secret1" {
		t.Fatal("hash must not equal the plain password")
	}

	if !CheckPassword("secret1", hash) {
		t.Error("correct password should verify")
	}

	if CheckPassword("equivocada", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	second, err := HashPassword("secret1")

	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password should differ")
	}
}
