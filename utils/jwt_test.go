package utils

import (
	"testing"
	"time"
)

func TestVerifyTokenRoundTrip(t *testing.T) {
	token, err := GenerateTestToken("secret", "user-42", "u@example.com", "User Forty-Two", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := VerifyToken(token, "secret")
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.UserExternalID != "user-42" {
		t.Fatalf("expected sub user-42, got %s", claims.UserExternalID)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateTestToken("secret", "user-42", "u@example.com", "User", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := VerifyToken(token, "other-secret"); err == nil {
		t.Fatalf("expected verification to fail with the wrong secret")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token, err := GenerateTestToken("secret", "user-42", "u@example.com", "User", -time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := VerifyToken(token, "secret"); err == nil {
		t.Fatalf("expected verification to fail for an expired token")
	}
}
