package utils

import "testing"

func TestHashAndCheckSharePasswordRoundTrip(t *testing.T) {
	hash, err := HashSharePassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	ok, err := CheckSharePassword("correct-horse-battery-staple", hash)
	if err != nil {
		t.Fatalf("check password: %v", err)
	}
	if !ok {
		t.Fatalf("expected the correct password to verify")
	}
}

func TestCheckSharePasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashSharePassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	ok, err := CheckSharePassword("wrong-password", hash)
	if err != nil {
		t.Fatalf("check password: %v", err)
	}
	if ok {
		t.Fatalf("expected an incorrect password to fail verification")
	}
}

func TestHashSharePasswordProducesUniqueSalts(t *testing.T) {
	hashA, _ := HashSharePassword("same-password")
	hashB, _ := HashSharePassword("same-password")
	if hashA == hashB {
		t.Fatalf("expected two hashes of the same password to differ by salt")
	}
}

func TestCheckSharePasswordRejectsMalformedHash(t *testing.T) {
	if _, err := CheckSharePassword("anything", "not-a-valid-hash"); err == nil {
		t.Fatalf("expected an error for an unrecognized hash format")
	}
}
