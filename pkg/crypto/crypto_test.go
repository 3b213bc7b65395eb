package crypto

import (
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !VerifyPassword(hash, "secret") {
		t.Fatal("expected password verification to succeed")
	}

	if VerifyPassword(hash, "incorrect") {
		t.Fatal("expected password verification to fail")
	}
}

func TestHashPasswordSalts(t *testing.T) {
	first, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
	if !strings.HasPrefix(first, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", first)
	}
}
