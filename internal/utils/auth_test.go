package utils

import (
	"testing"
	"time"
)

func TestIdentityToken(t *testing.T) {
	secret := "test-secret-key-12345"
	id := Identity{Username: "kho1", Name: "Nguyen Van A"}

	token, err := GenerateIdentityToken(id, secret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	got := IdentityFromClaims(claims)
	if got != id {
		t.Errorf("Identity mismatch: got %+v, want %+v", got, id)
	}

	// Wrong key
	if _, err := ValidateToken(token, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}
}

func TestIdentityToken_Expired(t *testing.T) {
	token, err := GenerateIdentityToken(Identity{Username: "kho1"}, "s", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := ValidateToken(token, "s"); err == nil {
		t.Error("Expired token should not validate")
	}
}

func TestIdentityToken_EmptySecret(t *testing.T) {
	if _, err := GenerateIdentityToken(Identity{Username: "kho1"}, "", time.Hour); err == nil {
		t.Error("Expected error for empty secret")
	}
}
